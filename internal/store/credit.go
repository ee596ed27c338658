package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
)

// CreditStore defines the interface for the per-user credit ledger.
// Every mutation preserves the ledger invariant
// available == total - used with all values non-negative; the row is
// never written by direct field assignment.
type CreditStore interface {
	// GetBalance retrieves the ledger row for a user. If no row exists it
	// returns a zero-valued balance rather than an error, so callers never
	// need a nil check for first-time users.
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.CreditBalance, error)

	// Grant increases total and available by the given amount, creating
	// the row if absent. Idempotency is the caller's responsibility and is
	// provided by the transaction state machine in the webhook path.
	Grant(ctx context.Context, userID uuid.UUID, credits int) error

	// Debit atomically consumes credits. Returns false with no mutation
	// when available < amount. Concurrent debits for the same user
	// serialize on the row: for a balance of N, two concurrent debits of N
	// resolve as exactly one success and one failure.
	Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error)

	// Refund returns credits, clamping used at zero so refunding more
	// than was ever used cannot break the invariant.
	Refund(ctx context.Context, userID uuid.UUID, amount int) error

	// WithTx returns a new CreditStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CreditStore
}
