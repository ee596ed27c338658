package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/store"
)

// PostgresPlanStore implements the store.PlanStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPlanStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPlanStore creates a new PostgreSQL implementation of the
// PlanStore interface.
func NewPostgresPlanStore(db store.DBTX, log *slog.Logger) *PostgresPlanStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresPlanStore{
		db:     db,
		logger: log.With(slog.String("component", "plan_store")),
	}
}

// Ensure PostgresPlanStore implements store.PlanStore interface
var _ store.PlanStore = (*PostgresPlanStore)(nil)

const planColumns = `id, name, description, credits, price_in_cents, is_active, display_order, created_at, updated_at`

// ListActive implements store.PlanStore.ListActive
func (s *PostgresPlanStore) ListActive(ctx context.Context) ([]*domain.CreditPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM credit_plans
		WHERE is_active = TRUE
		ORDER BY display_order ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	plans := make([]*domain.CreditPlan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return plans, nil
}

// GetByID implements store.PlanStore.GetByID
// Returns store.ErrPlanNotFound if the plan does not exist.
func (s *PostgresPlanStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CreditPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM credit_plans
		WHERE id = $1
	`

	plan, err := scanPlan(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrPlanNotFound
		}
		return nil, err
	}

	return plan, nil
}

// WithTx implements store.PlanStore.WithTx
func (s *PostgresPlanStore) WithTx(tx *sql.Tx) store.PlanStore {
	return &PostgresPlanStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPlan maps one credit plan row into a domain.CreditPlan.
func scanPlan(row rowScanner) (*domain.CreditPlan, error) {
	var plan domain.CreditPlan
	err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.Description,
		&plan.Credits,
		&plan.PriceInCents,
		&plan.IsActive,
		&plan.DisplayOrder,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}

	return &plan, nil
}
