package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/platform/logger"
	"github.com/provix/provix-api/internal/store"
	"github.com/provix/provix-api/internal/telemetry"
)

// CreditService exposes the credit ledger operations. All mutations go
// through the CreditStore, which preserves the ledger invariant; this
// layer adds logging, metrics, and the service-level error vocabulary.
type CreditService interface {
	// GetBalance returns the user's ledger row, zero-valued when absent.
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.CreditBalance, error)

	// Grant adds purchased credits. The caller guarantees at-most-once
	// semantics per confirmed payment via the transaction state machine;
	// the ledger itself does not deduplicate.
	Grant(ctx context.Context, userID uuid.UUID, credits int) error

	// Debit consumes credits, returning false when available < amount.
	Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error)

	// Refund returns credits, clamping used at zero.
	Refund(ctx context.Context, userID uuid.UUID, amount int) error
}

// creditServiceImpl implements the CreditService interface
type creditServiceImpl struct {
	creditStore store.CreditStore
	logger      *slog.Logger
}

// Ensure creditServiceImpl implements the CreditService interface
var _ CreditService = (*creditServiceImpl)(nil)

// NewCreditService creates a new CreditService.
func NewCreditService(creditStore store.CreditStore, log *slog.Logger) CreditService {
	if log == nil {
		log = slog.Default()
	}

	return &creditServiceImpl{
		creditStore: creditStore,
		logger:      log.With(slog.String("component", "credit_service")),
	}
}

// GetBalance implements CreditService.GetBalance
func (s *creditServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.CreditBalance, error) {
	balance, err := s.creditStore.GetBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit balance: %w", err)
	}
	return balance, nil
}

// Grant implements CreditService.Grant
func (s *creditServiceImpl) Grant(ctx context.Context, userID uuid.UUID, credits int) error {
	if err := s.creditStore.Grant(ctx, userID, credits); err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}

	telemetry.CreditsGranted.Add(float64(credits))
	return nil
}

// Debit implements CreditService.Debit
func (s *creditServiceImpl) Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ok, err := s.creditStore.Debit(ctx, userID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to debit credits: %w", err)
	}

	if !ok {
		log.Warn("debit rejected",
			slog.String("user_id", userID.String()),
			slog.Int("amount", amount))
		return false, nil
	}

	telemetry.CreditsDebited.Add(float64(amount))
	return true, nil
}

// Refund implements CreditService.Refund
func (s *creditServiceImpl) Refund(ctx context.Context, userID uuid.UUID, amount int) error {
	if err := s.creditStore.Refund(ctx, userID, amount); err != nil {
		return fmt.Errorf("failed to refund credits: %w", err)
	}
	return nil
}
