package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
)

// TaskStore defines the interface for task and task log persistence.
// After creation, task rows are exclusively mutated by the task processor.
type TaskStore interface {
	// Create saves a new pending task.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListByUser retrieves all tasks owned by a user, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// ClaimNextPending atomically claims the oldest pending task by
	// transitioning it to processing and stamping started_at, so two
	// concurrent workers can never claim the same task. Returns
	// ErrTaskNotFound when no pending task exists.
	ClaimNextPending(ctx context.Context) (*domain.Task, error)

	// MarkCancelled transitions a task from pending to cancelled.
	// Returns false with no mutation when the task is not pending.
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)

	// Finish settles a claimed task: status must be completed or failed.
	// Derived slot counts, credits used, the error message, and
	// completed_at are written together.
	Finish(ctx context.Context, task *domain.Task) error

	// ResetInterrupted moves tasks stuck in processing back to pending,
	// used for crash recovery at startup. Returns the number of rows reset.
	ResetInterrupted(ctx context.Context) (int, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// TaskLogStore defines the interface for per-slot attempt records.
type TaskLogStore interface {
	// Create saves a new log entry for one account slot.
	Create(ctx context.Context, log *domain.TaskLog) error

	// Update writes a log's settled state (status, error message, project
	// identifiers, timestamps).
	Update(ctx context.Context, log *domain.TaskLog) error

	// ListByTask retrieves all logs for a task ordered by account number.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskLog, error)

	// CountByStatus tallies a task's logs per status, used to derive task
	// progress from the logs instead of trusting separate counters.
	CountByStatus(ctx context.Context, taskID uuid.UUID) (map[domain.TaskLogStatus]int, error)

	// WithTx returns a new TaskLogStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskLogStore
}
