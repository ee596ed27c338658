package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for credit entities
var (
	ErrEmptyBalanceUserID = errors.New("credit balance user ID cannot be empty")
	ErrNegativeCredits    = errors.New("credit amounts cannot be negative")
	ErrBalanceOutOfSync   = errors.New("available credits must equal total minus used")
)

// CreditBalance is the per-user credit ledger row. Invariant:
// Available == Total - Used, and all three are non-negative.
// The row is mutated only through ledger operations (grant, debit,
// refund), never by direct field assignment from untrusted input.
type CreditBalance struct {
	UserID    uuid.UUID `json:"user_id"`
	Total     int       `json:"total_credits"`
	Used      int       `json:"used_credits"`
	Available int       `json:"available_credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCreditBalance creates an empty balance row for a user.
func NewCreditBalance(userID uuid.UUID) (*CreditBalance, error) {
	now := time.Now().UTC()
	balance := &CreditBalance{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := balance.Validate(); err != nil {
		return nil, err
	}

	return balance, nil
}

// Validate checks the ledger invariants.
func (b *CreditBalance) Validate() error {
	if b.UserID == uuid.Nil {
		return ErrEmptyBalanceUserID
	}

	if b.Total < 0 || b.Used < 0 || b.Available < 0 {
		return ErrNegativeCredits
	}

	if b.Available != b.Total-b.Used {
		return ErrBalanceOutOfSync
	}

	return nil
}

// CreditPlan is a purchasable credit bundle. Plans are read-only
// reference data seeded out of band.
type CreditPlan struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Credits      int       `json:"credits"`
	PriceInCents int       `json:"price_in_cents"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
