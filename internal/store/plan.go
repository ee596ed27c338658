package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
)

// PlanStore defines read access to the credit plan catalog.
// Plans are reference data seeded by migrations; there is no write path.
type PlanStore interface {
	// ListActive retrieves active plans ordered by display order.
	ListActive(ctx context.Context) ([]*domain.CreditPlan, error)

	// GetByID retrieves a plan by its unique ID.
	// Returns ErrPlanNotFound if the plan does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CreditPlan, error)

	// WithTx returns a new PlanStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PlanStore
}
