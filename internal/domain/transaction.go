package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the payment state of a transaction
type TransactionStatus string

// Possible transaction status values
const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusExpired   TransactionStatus = "expired"
)

// Common validation errors for Transaction
var (
	ErrEmptyTransactionID       = errors.New("transaction ID cannot be empty")
	ErrEmptyTransactionUserID   = errors.New("transaction user ID cannot be empty")
	ErrEmptyTransactionPlanID   = errors.New("transaction plan ID cannot be empty")
	ErrNonPositiveAmount        = errors.New("transaction amount must be positive")
	ErrInvalidTransactionStatus = errors.New("invalid transaction status")
	ErrTransactionFinal         = errors.New("transaction is in a terminal state")
)

// Transaction records the intent to buy a credit plan via a PIX charge.
// Status moves from pending to exactly one of the terminal states
// (confirmed, failed, expired); terminal states are final.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	UserID        uuid.UUID         `json:"user_id"`
	PlanID        uuid.UUID         `json:"plan_id"`
	AmountInCents int               `json:"amount_in_cents"`
	Status        TransactionStatus `json:"status"`

	// ExternalID is the payment provider's charge identifier.
	ExternalID    string     `json:"external_id,omitempty"`
	QRCode        string     `json:"qr_code,omitempty"`
	CopyPasteCode string     `json:"copy_paste_code,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTransaction creates a pending transaction for the given user and plan.
func NewTransaction(userID, planID uuid.UUID, amountInCents int) (*Transaction, error) {
	now := time.Now().UTC()
	txn := &Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		PlanID:        planID,
		AmountInCents: amountInCents,
		Status:        TransactionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	return txn, nil
}

// Validate checks if the Transaction has valid data.
func (t *Transaction) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTransactionID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTransactionUserID
	}

	if t.PlanID == uuid.Nil {
		return ErrEmptyTransactionPlanID
	}

	if t.AmountInCents <= 0 {
		return ErrNonPositiveAmount
	}

	if !isValidTransactionStatus(t.Status) {
		return ErrInvalidTransactionStatus
	}

	return nil
}

// IsFinal reports whether the transaction has reached a terminal state.
func (t *Transaction) IsFinal() bool {
	return t.Status != TransactionStatusPending
}

// Confirm transitions the transaction to confirmed and records the payment
// time. Returns ErrTransactionFinal if the transaction already settled.
func (t *Transaction) Confirm(paidAt time.Time) error {
	if t.IsFinal() {
		return ErrTransactionFinal
	}

	paid := paidAt.UTC()
	t.Status = TransactionStatusConfirmed
	t.PaidAt = &paid
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidTransactionStatus checks if the given status is a valid TransactionStatus.
func isValidTransactionStatus(status TransactionStatus) bool {
	switch status {
	case TransactionStatusPending, TransactionStatusConfirmed,
		TransactionStatusFailed, TransactionStatusExpired:
		return true
	default:
		return false
	}
}
