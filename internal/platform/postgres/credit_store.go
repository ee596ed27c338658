package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/platform/logger"
	"github.com/provix/provix-api/internal/store"
)

// PostgresCreditStore implements the store.CreditStore interface
// using a PostgreSQL database as the storage backend. The ledger
// invariant (available == total - used, all non-negative) is enforced
// both here and by CHECK constraints on the user_credits table.
type PostgresCreditStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCreditStore creates a new PostgreSQL implementation of the
// CreditStore interface.
func NewPostgresCreditStore(db store.DBTX, log *slog.Logger) *PostgresCreditStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresCreditStore{
		db:     db,
		logger: log.With(slog.String("component", "credit_store")),
	}
}

// Ensure PostgresCreditStore implements store.CreditStore interface
var _ store.CreditStore = (*PostgresCreditStore)(nil)

// GetBalance implements store.CreditStore.GetBalance
// A missing row yields a zero-valued balance, not an error.
func (s *PostgresCreditStore) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.CreditBalance, error) {
	query := `
		SELECT user_id, total_credits, used_credits, available_credits, created_at, updated_at
		FROM user_credits
		WHERE user_id = $1
	`

	var balance domain.CreditBalance
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&balance.UserID,
		&balance.Total,
		&balance.Used,
		&balance.Available,
		&balance.CreatedAt,
		&balance.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			now := time.Now().UTC()
			return &domain.CreditBalance{
				UserID:    userID,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		return nil, MapError(err)
	}

	return &balance, nil
}

// Grant implements store.CreditStore.Grant
// It upserts the ledger row, increasing total and available together.
func (s *PostgresCreditStore) Grant(ctx context.Context, userID uuid.UUID, credits int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if credits <= 0 {
		return store.NewStoreError("credit_balance", "grant",
			"grant amount must be positive", domain.ErrNegativeCredits)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO user_credits (user_id, total_credits, used_credits, available_credits, created_at, updated_at)
		VALUES ($1, $2, 0, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			total_credits = user_credits.total_credits + EXCLUDED.total_credits,
			available_credits = user_credits.available_credits + EXCLUDED.available_credits,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, userID, credits, now); err != nil {
		log.Error("failed to grant credits",
			slog.String("user_id", userID.String()),
			slog.Int("credits", credits),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Info("credits granted",
		slog.String("user_id", userID.String()),
		slog.Int("credits", credits))
	return nil
}

// Debit implements store.CreditStore.Debit
// Sufficiency is checked inside the UPDATE itself, so concurrent debits
// for the same user serialize on the row and can never drive available
// negative. Returns false with no mutation when funds are insufficient.
func (s *PostgresCreditStore) Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if amount <= 0 {
		return false, store.NewStoreError("credit_balance", "debit",
			"debit amount must be positive", domain.ErrNegativeCredits)
	}

	query := `
		UPDATE user_credits
		SET used_credits = used_credits + $2,
			available_credits = available_credits - $2,
			updated_at = $3
		WHERE user_id = $1 AND available_credits >= $2
	`
	result, err := s.db.ExecContext(ctx, query, userID, amount, time.Now().UTC())
	if err != nil {
		log.Error("failed to debit credits",
			slog.String("user_id", userID.String()),
			slog.Int("amount", amount),
			slog.String("error", err.Error()))
		return false, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}

	if rows == 0 {
		log.Warn("debit rejected: insufficient credits",
			slog.String("user_id", userID.String()),
			slog.Int("amount", amount))
		return false, nil
	}

	log.Info("credits debited",
		slog.String("user_id", userID.String()),
		slog.Int("amount", amount))
	return true, nil
}

// Refund implements store.CreditStore.Refund
// used is clamped at zero so over-refunding cannot break the invariant;
// total absorbs the difference to keep available == total - used.
func (s *PostgresCreditStore) Refund(ctx context.Context, userID uuid.UUID, amount int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if amount <= 0 {
		return store.NewStoreError("credit_balance", "refund",
			"refund amount must be positive", domain.ErrNegativeCredits)
	}

	query := `
		UPDATE user_credits
		SET total_credits = total_credits + GREATEST(0, $2 - used_credits),
			used_credits = GREATEST(0, used_credits - $2),
			available_credits = available_credits + $2,
			updated_at = $3
		WHERE user_id = $1
	`
	result, err := s.db.ExecContext(ctx, query, userID, amount, time.Now().UTC())
	if err != nil {
		log.Error("failed to refund credits",
			slog.String("user_id", userID.String()),
			slog.Int("amount", amount),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return store.ErrUserNotFound
	}

	log.Info("credits refunded",
		slog.String("user_id", userID.String()),
		slog.Int("amount", amount))
	return nil
}

// WithTx implements store.CreditStore.WithTx
func (s *PostgresCreditStore) WithTx(tx *sql.Tx) store.CreditStore {
	return &PostgresCreditStore{
		db:     tx,
		logger: s.logger,
	}
}
