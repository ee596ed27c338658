package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/platform/logger"
	"github.com/provix/provix-api/internal/store"
)

// PostgresTransactionStore implements the store.TransactionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTransactionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTransactionStore creates a new PostgreSQL implementation of
// the TransactionStore interface.
func NewPostgresTransactionStore(db store.DBTX, log *slog.Logger) *PostgresTransactionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresTransactionStore{
		db:     db,
		logger: log.With(slog.String("component", "transaction_store")),
	}
}

// Ensure PostgresTransactionStore implements store.TransactionStore interface
var _ store.TransactionStore = (*PostgresTransactionStore)(nil)

const transactionColumns = `id, user_id, plan_id, amount_in_cents, status, external_id, qr_code, copy_paste_code, expires_at, paid_at, created_at, updated_at`

// Create implements store.TransactionStore.Create
func (s *PostgresTransactionStore) Create(ctx context.Context, txn *domain.Transaction) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := txn.Validate(); err != nil {
		log.Warn("transaction validation failed during create",
			slog.String("error", err.Error()),
			slog.String("transaction_id", txn.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO transactions (id, user_id, plan_id, amount_in_cents, status, external_id, qr_code, copy_paste_code, expires_at, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		txn.ID,
		txn.UserID,
		txn.PlanID,
		txn.AmountInCents,
		txn.Status,
		nullString(txn.ExternalID),
		nullString(txn.QRCode),
		nullString(txn.CopyPasteCode),
		txn.ExpiresAt,
		txn.PaidAt,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create transaction",
			slog.String("error", err.Error()),
			slog.String("transaction_id", txn.ID.String()),
			slog.String("user_id", txn.UserID.String()))
		return MapError(err)
	}

	log.Info("transaction created",
		slog.String("transaction_id", txn.ID.String()),
		slog.String("user_id", txn.UserID.String()),
		slog.Int("amount_in_cents", txn.AmountInCents))
	return nil
}

// GetByID implements store.TransactionStore.GetByID
func (s *PostgresTransactionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`
	return s.scanTransaction(s.db.QueryRowContext(ctx, query, id))
}

// GetByExternalID implements store.TransactionStore.GetByExternalID
func (s *PostgresTransactionStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE external_id = $1
	`
	return s.scanTransaction(s.db.QueryRowContext(ctx, query, externalID))
}

// ListByUser implements store.TransactionStore.ListByUser
func (s *PostgresTransactionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return txns, nil
}

// SetCharge implements store.TransactionStore.SetCharge
func (s *PostgresTransactionStore) SetCharge(ctx context.Context, id uuid.UUID, externalID, qrCode, copyPasteCode string, expiresAt time.Time) error {
	query := `
		UPDATE transactions
		SET external_id = $2, qr_code = $3, copy_paste_code = $4, expires_at = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, externalID, qrCode, copyPasteCode, expiresAt, time.Now().UTC())
	if err != nil {
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return store.ErrTransactionNotFound
	}

	return nil
}

// Confirm implements store.TransactionStore.Confirm
// The status predicate in the UPDATE is the idempotency guard: a
// redelivered webhook sees zero rows affected and skips the grant.
func (s *PostgresTransactionStore) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `
		UPDATE transactions
		SET status = $2, paid_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := s.db.ExecContext(ctx, query, id,
		domain.TransactionStatusConfirmed, now, domain.TransactionStatusPending)
	if err != nil {
		log.Error("failed to confirm transaction",
			slog.String("transaction_id", id.String()),
			slog.String("error", err.Error()))
		return false, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}

	if rows == 0 {
		return false, nil
	}

	log.Info("transaction confirmed",
		slog.String("transaction_id", id.String()))
	return true, nil
}

// UpdateStatus implements store.TransactionStore.UpdateStatus
// Only pending transactions may move; terminal states are final.
func (s *PostgresTransactionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	query := `
		UPDATE transactions
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := s.db.ExecContext(ctx, query, id, status, time.Now().UTC(),
		domain.TransactionStatusPending)
	if err != nil {
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: transaction %s is not pending", store.ErrUpdateFailed, id)
	}

	return nil
}

// ExpireOverdue implements store.TransactionStore.ExpireOverdue
// Only pending rows move, so a payment confirmed moments before the
// sweep keeps its granted credits.
func (s *PostgresTransactionStore) ExpireOverdue(ctx context.Context) (int, error) {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at IS NOT NULL AND expires_at < $2
	`
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		domain.TransactionStatusExpired, now, domain.TransactionStatusPending)
	if err != nil {
		return 0, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}

	return int(rows), nil
}

// WithTx implements store.TransactionStore.WithTx
func (s *PostgresTransactionStore) WithTx(tx *sql.Tx) store.TransactionStore {
	return &PostgresTransactionStore{
		db:     tx,
		logger: s.logger,
	}
}

// scanTransaction maps one transaction row into a domain.Transaction.
func (s *PostgresTransactionStore) scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		txn        domain.Transaction
		externalID sql.NullString
		qrCode     sql.NullString
		copyPaste  sql.NullString
		expiresAt  sql.NullTime
		paidAt     sql.NullTime
	)

	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.PlanID,
		&txn.AmountInCents,
		&txn.Status,
		&externalID,
		&qrCode,
		&copyPaste,
		&expiresAt,
		&paidAt,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTransactionNotFound
		}
		return nil, MapError(err)
	}

	txn.ExternalID = externalID.String
	txn.QRCode = qrCode.String
	txn.CopyPasteCode = copyPaste.String
	if expiresAt.Valid {
		t := expiresAt.Time
		txn.ExpiresAt = &t
	}
	if paidAt.Valid {
		t := paidAt.Time
		txn.PaidAt = &t
	}

	return &txn, nil
}

// nullString converts empty strings to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
