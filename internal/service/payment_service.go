package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/payment"
	"github.com/provix/provix-api/internal/platform/logger"
	"github.com/provix/provix-api/internal/store"
	"github.com/provix/provix-api/internal/telemetry"
)

// ConfirmOutcome reports what a webhook delivery actually did, so the
// handler can log and count redeliveries separately from first deliveries.
type ConfirmOutcome int

const (
	// ConfirmGranted means this delivery confirmed the transaction and
	// granted the plan's credits.
	ConfirmGranted ConfirmOutcome = iota

	// ConfirmAlreadyProcessed means the transaction had already settled;
	// nothing changed.
	ConfirmAlreadyProcessed

	// ConfirmNotApproved means the provider did not report the payment as
	// approved; nothing changed.
	ConfirmNotApproved
)

// PaymentService handles credit purchases: creating PIX charges for credit
// plans and settling them when the provider notifies us.
type PaymentService interface {
	// ListPlans returns the purchasable credit plans.
	ListPlans(ctx context.Context) ([]*domain.CreditPlan, error)

	// CreateTransaction creates a pending transaction for a plan and
	// requests a PIX charge from the provider. Returns ErrPlanNotFound
	// for unknown or inactive plans.
	CreateTransaction(ctx context.Context, userID, planID uuid.UUID) (*domain.Transaction, error)

	// GetTransaction returns a transaction owned by the user.
	// Returns ErrTransactionNotFound or ErrNotOwned as appropriate.
	GetTransaction(ctx context.Context, userID, txnID uuid.UUID) (*domain.Transaction, error)

	// ListTransactions returns the user's transactions, newest first.
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*domain.Transaction, error)

	// ConfirmPayment settles the transaction identified by the provider's
	// payment ID. It re-queries the provider for the authoritative status
	// and, when approved, confirms the transaction and grants the plan's
	// credits atomically. Safe to call any number of times per payment:
	// only the delivery that wins the pending-to-confirmed transition
	// grants credits. Returns ErrTransactionNotFound when no transaction
	// matches the payment ID.
	ConfirmPayment(ctx context.Context, paymentID string) (ConfirmOutcome, error)

	// ExpireOverdueTransactions moves pending transactions whose PIX
	// charge lapsed to expired, returning how many were swept.
	ExpireOverdueTransactions(ctx context.Context) (int, error)
}

// paymentServiceImpl implements the PaymentService interface
type paymentServiceImpl struct {
	db        *sql.DB
	txnStore  store.TransactionStore
	planStore store.PlanStore
	userStore store.UserStore
	credits   store.CreditStore
	gateway   payment.Gateway
	logger    *slog.Logger
}

// Ensure paymentServiceImpl implements the PaymentService interface
var _ PaymentService = (*paymentServiceImpl)(nil)

// NewPaymentService creates a new PaymentService. db is required for the
// confirm-and-grant transaction on the webhook path.
func NewPaymentService(
	db *sql.DB,
	txnStore store.TransactionStore,
	planStore store.PlanStore,
	userStore store.UserStore,
	credits store.CreditStore,
	gateway payment.Gateway,
	log *slog.Logger,
) PaymentService {
	if log == nil {
		log = slog.Default()
	}

	return &paymentServiceImpl{
		db:        db,
		txnStore:  txnStore,
		planStore: planStore,
		userStore: userStore,
		credits:   credits,
		gateway:   gateway,
		logger:    log.With(slog.String("component", "payment_service")),
	}
}

// ListPlans implements PaymentService.ListPlans
func (s *paymentServiceImpl) ListPlans(ctx context.Context) ([]*domain.CreditPlan, error) {
	plans, err := s.planStore.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// CreateTransaction implements PaymentService.CreateTransaction
func (s *paymentServiceImpl) CreateTransaction(ctx context.Context, userID, planID uuid.UUID) (*domain.Transaction, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	plan, err := s.planStore.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if !plan.IsActive {
		return nil, ErrPlanNotFound
	}

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	txn, err := domain.NewTransaction(userID, planID, plan.PriceInCents)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.txnStore.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	charge, err := s.gateway.CreateCharge(ctx, payment.CreateChargeParams{
		AmountInCents:     plan.PriceInCents,
		PayerEmail:        user.Email,
		Description:       fmt.Sprintf("%s (%d credits)", plan.Name, plan.Credits),
		ExternalReference: txn.ID.String(),
	})
	if err != nil {
		// The pending row stays behind and expires on its own schedule;
		// the purchase itself fails loudly.
		if stErr := s.txnStore.UpdateStatus(ctx, txn.ID, domain.TransactionStatusFailed); stErr != nil {
			log.Error("failed to mark transaction failed after charge error",
				slog.String("transaction_id", txn.ID.String()),
				slog.String("error", stErr.Error()))
		}
		return nil, fmt.Errorf("failed to create charge: %w", err)
	}

	if err := s.txnStore.SetCharge(ctx, txn.ID, charge.ID, charge.QRCode, charge.CopyPasteCode, charge.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to record charge: %w", err)
	}

	txn.ExternalID = charge.ID
	txn.QRCode = charge.QRCode
	txn.CopyPasteCode = charge.CopyPasteCode
	expires := charge.ExpiresAt
	txn.ExpiresAt = &expires

	log.Info("PIX charge created",
		slog.String("transaction_id", txn.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("plan_id", planID.String()),
		slog.Int("amount_in_cents", plan.PriceInCents))
	return txn, nil
}

// GetTransaction implements PaymentService.GetTransaction
func (s *paymentServiceImpl) GetTransaction(ctx context.Context, userID, txnID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txnStore.GetByID(ctx, txnID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	if txn.UserID != userID {
		return nil, ErrNotOwned
	}

	return txn, nil
}

// ListTransactions implements PaymentService.ListTransactions
func (s *paymentServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*domain.Transaction, error) {
	txns, err := s.txnStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// ConfirmPayment implements PaymentService.ConfirmPayment
func (s *paymentServiceImpl) ConfirmPayment(ctx context.Context, paymentID string) (ConfirmOutcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	txn, err := s.txnStore.GetByExternalID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrTransactionNotFound
		}
		return 0, fmt.Errorf("failed to resolve transaction: %w", err)
	}

	// Cheap early exit for redeliveries. The conditional update below is
	// the real guard; this just avoids a provider round trip.
	if txn.IsFinal() {
		log.Info("webhook redelivery for settled transaction",
			slog.String("transaction_id", txn.ID.String()),
			slog.String("status", string(txn.Status)))
		return ConfirmAlreadyProcessed, nil
	}

	// Never trust the notification payload's status; ask the provider.
	status, err := s.gateway.GetStatus(ctx, paymentID)
	if err != nil {
		return 0, fmt.Errorf("failed to query payment status: %w", err)
	}

	switch status {
	case payment.StatusApproved:
		// fall through to confirm + grant
	case payment.StatusRejected, payment.StatusCancelled:
		if err := s.txnStore.UpdateStatus(ctx, txn.ID, domain.TransactionStatusFailed); err != nil {
			return 0, fmt.Errorf("failed to mark transaction failed: %w", err)
		}
		log.Info("payment not approved",
			slog.String("transaction_id", txn.ID.String()),
			slog.String("provider_status", status))
		return ConfirmNotApproved, nil
	default:
		log.Info("payment still pending at provider",
			slog.String("transaction_id", txn.ID.String()),
			slog.String("provider_status", status))
		return ConfirmNotApproved, nil
	}

	plan, err := s.planStore.GetByID(ctx, txn.PlanID)
	if err != nil {
		return 0, fmt.Errorf("failed to load plan for grant: %w", err)
	}

	outcome := ConfirmAlreadyProcessed
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		confirmed, err := s.txnStore.WithTx(tx).Confirm(ctx, txn.ID)
		if err != nil {
			return fmt.Errorf("failed to confirm transaction: %w", err)
		}
		if !confirmed {
			// Another delivery won the pending-to-confirmed race and
			// already granted. Commit with no further effect.
			return nil
		}

		if err := s.credits.WithTx(tx).Grant(ctx, txn.UserID, plan.Credits); err != nil {
			return fmt.Errorf("failed to grant credits: %w", err)
		}

		outcome = ConfirmGranted
		return nil
	})
	if err != nil {
		return 0, err
	}

	if outcome == ConfirmGranted {
		telemetry.CreditsGranted.Add(float64(plan.Credits))
		log.Info("payment confirmed, credits granted",
			slog.String("transaction_id", txn.ID.String()),
			slog.String("user_id", txn.UserID.String()),
			slog.Int("credits", plan.Credits))
	}
	return outcome, nil
}

// ExpireOverdueTransactions implements PaymentService.ExpireOverdueTransactions
func (s *paymentServiceImpl) ExpireOverdueTransactions(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	expired, err := s.txnStore.ExpireOverdue(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue transactions: %w", err)
	}

	if expired > 0 {
		telemetry.TransactionsExpired.Add(float64(expired))
		log.Info("expired overdue transactions", slog.Int("count", expired))
	}
	return expired, nil
}
