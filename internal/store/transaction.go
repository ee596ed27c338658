package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
)

// TransactionStore defines the interface for payment transaction persistence.
type TransactionStore interface {
	// Create saves a new pending transaction.
	Create(ctx context.Context, txn *domain.Transaction) error

	// GetByID retrieves a transaction by its unique ID.
	// Returns ErrTransactionNotFound if the transaction does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// GetByExternalID retrieves a transaction by the payment provider's
	// charge identifier. Returns ErrTransactionNotFound if none matches.
	GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error)

	// ListByUser retrieves a user's transactions, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transaction, error)

	// SetCharge records the provider charge details issued for a pending
	// transaction (external id, QR code, copy-paste code, expiry).
	SetCharge(ctx context.Context, id uuid.UUID, externalID, qrCode, copyPasteCode string, expiresAt time.Time) error

	// Confirm transitions a transaction from pending to confirmed,
	// recording paid_at. It mutates nothing and returns false when the
	// transaction is not pending, which is the idempotency guard for
	// redelivered webhooks: the conditional update must observe the
	// post-confirmation state.
	Confirm(ctx context.Context, id uuid.UUID) (bool, error)

	// UpdateStatus moves a pending transaction to failed or expired.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error

	// ExpireOverdue moves every pending transaction whose charge expiry
	// has passed to expired, returning how many rows changed.
	ExpireOverdue(ctx context.Context) (int, error)

	// WithTx returns a new TransactionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TransactionStore
}
