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

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface.
func NewPostgresTaskStore(db store.DBTX, log *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: log.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = `id, user_id, invite_link, quantity_requested, quantity_completed, quantity_failed, status, credits_used, error_message, started_at, completed_at, created_at, updated_at`

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, user_id, invite_link, quantity_requested, quantity_completed, quantity_failed, status, credits_used, error_message, started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.UserID,
		task.InviteLink,
		task.QuantityRequested,
		task.QuantityCompleted,
		task.QuantityFailed,
		task.Status,
		task.CreditsUsed,
		nullString(task.ErrorMessage),
		task.StartedAt,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()),
		slog.Int("quantity_requested", task.QuantityRequested))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrTaskNotFound
		}
		return nil, err
	}

	return task, nil
}

// ListByUser implements store.TaskStore.ListByUser
func (s *PostgresTaskStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tasks, nil
}

// ClaimNextPending implements store.TaskStore.ClaimNextPending
// The claim is one conditional UPDATE over a FOR UPDATE SKIP LOCKED
// subquery, so concurrent workers never pick the same task and never
// block each other on the pending queue.
func (s *PostgresTaskStore) ClaimNextPending(ctx context.Context) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET status = $1, started_at = $2, updated_at = $2
		WHERE id = (
			SELECT id FROM tasks
			WHERE status = $3
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskColumns + `
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query,
		domain.TaskStatusProcessing, now, domain.TaskStatusPending))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrTaskNotFound
		}
		return nil, err
	}

	log.Info("task claimed for processing",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return task, nil
}

// MarkCancelled implements store.TaskStore.MarkCancelled
// Returns false when the task was no longer pending; the caller decides
// whether that is a conflict or a benign race.
func (s *PostgresTaskStore) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE tasks
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	result, err := s.db.ExecContext(ctx, query, id,
		domain.TaskStatusCancelled, time.Now().UTC(), domain.TaskStatusPending)
	if err != nil {
		return false, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}

	return rows > 0, nil
}

// Finish implements store.TaskStore.Finish
func (s *PostgresTaskStore) Finish(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if task.Status != domain.TaskStatusCompleted && task.Status != domain.TaskStatusFailed {
		return store.NewStoreError("task", "finish",
			"finish requires a terminal status", domain.ErrInvalidStatusTransition)
	}

	query := `
		UPDATE tasks
		SET status = $2, quantity_completed = $3, quantity_failed = $4,
			credits_used = $5, error_message = $6, completed_at = $7, updated_at = $8
		WHERE id = $1 AND status = $9
	`
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Status,
		task.QuantityCompleted,
		task.QuantityFailed,
		task.CreditsUsed,
		nullString(task.ErrorMessage),
		task.CompletedAt,
		now,
		domain.TaskStatusProcessing,
	)
	if err != nil {
		log.Error("failed to finish task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: task %s is not processing", store.ErrUpdateFailed, task.ID)
	}

	log.Info("task finished",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)),
		slog.Int("completed", task.QuantityCompleted),
		slog.Int("failed", task.QuantityFailed))
	return nil
}

// ResetInterrupted implements store.TaskStore.ResetInterrupted
// Tasks left in processing by a crashed worker go back to pending so the
// runner can pick them up again after restart.
func (s *PostgresTaskStore) ResetInterrupted(ctx context.Context) (int, error) {
	query := `
		UPDATE tasks
		SET status = $1, started_at = NULL, updated_at = $2
		WHERE status = $3
	`
	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusPending, time.Now().UTC(), domain.TaskStatusProcessing)
	if err != nil {
		return 0, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}

	return int(rows), nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// scanTask maps one task row into a domain.Task.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		errMsg      sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.InviteLink,
		&task.QuantityRequested,
		&task.QuantityCompleted,
		&task.QuantityFailed,
		&task.Status,
		&task.CreditsUsed,
		&errMsg,
		&startedAt,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}

	task.ErrorMessage = errMsg.String
	if startedAt.Valid {
		t := startedAt.Time
		task.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}

	return &task, nil
}
