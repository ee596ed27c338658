package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/platform/logger"
	"github.com/provix/provix-api/internal/store"
)

// PostgresTaskLogStore implements the store.TaskLogStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskLogStore creates a new PostgreSQL implementation of the
// TaskLogStore interface.
func NewPostgresTaskLogStore(db store.DBTX, log *slog.Logger) *PostgresTaskLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresTaskLogStore{
		db:     db,
		logger: log.With(slog.String("component", "task_log_store")),
	}
}

// Ensure PostgresTaskLogStore implements store.TaskLogStore interface
var _ store.TaskLogStore = (*PostgresTaskLogStore)(nil)

// Create implements store.TaskLogStore.Create
func (s *PostgresTaskLogStore) Create(ctx context.Context, taskLog *domain.TaskLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := taskLog.Validate(); err != nil {
		log.Warn("task log validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_log_id", taskLog.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO task_logs (id, task_id, account_number, email, status, error_message, project_id, project_url, started_at, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		taskLog.ID,
		taskLog.TaskID,
		taskLog.AccountNumber,
		nullString(taskLog.Email),
		taskLog.Status,
		nullString(taskLog.ErrorMessage),
		nullString(taskLog.ProjectID),
		nullString(taskLog.ProjectURL),
		taskLog.StartedAt,
		taskLog.CompletedAt,
		taskLog.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create task log",
			slog.String("error", err.Error()),
			slog.String("task_id", taskLog.TaskID.String()),
			slog.Int("account_number", taskLog.AccountNumber))
		return MapError(err)
	}

	return nil
}

// Update implements store.TaskLogStore.Update
func (s *PostgresTaskLogStore) Update(ctx context.Context, taskLog *domain.TaskLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE task_logs
		SET email = $2, status = $3, error_message = $4, project_id = $5,
			project_url = $6, started_at = $7, completed_at = $8
		WHERE id = $1
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		taskLog.ID,
		nullString(taskLog.Email),
		taskLog.Status,
		nullString(taskLog.ErrorMessage),
		nullString(taskLog.ProjectID),
		nullString(taskLog.ProjectURL),
		taskLog.StartedAt,
		taskLog.CompletedAt,
	)
	if err != nil {
		log.Error("failed to update task log",
			slog.String("error", err.Error()),
			slog.String("task_log_id", taskLog.ID.String()))
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return store.ErrTaskLogNotFound
	}

	return nil
}

// ListByTask implements store.TaskLogStore.ListByTask
func (s *PostgresTaskLogStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskLog, error) {
	query := `
		SELECT id, task_id, account_number, email, status, error_message, project_id, project_url, started_at, completed_at, created_at
		FROM task_logs
		WHERE task_id = $1
		ORDER BY account_number ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	logs := make([]*domain.TaskLog, 0)
	for rows.Next() {
		var (
			taskLog     domain.TaskLog
			email       sql.NullString
			errMsg      sql.NullString
			projectID   sql.NullString
			projectURL  sql.NullString
			startedAt   sql.NullTime
			completedAt sql.NullTime
		)

		err := rows.Scan(
			&taskLog.ID,
			&taskLog.TaskID,
			&taskLog.AccountNumber,
			&email,
			&taskLog.Status,
			&errMsg,
			&projectID,
			&projectURL,
			&startedAt,
			&completedAt,
			&taskLog.CreatedAt,
		)
		if err != nil {
			return nil, MapError(err)
		}

		taskLog.Email = email.String
		taskLog.ErrorMessage = errMsg.String
		taskLog.ProjectID = projectID.String
		taskLog.ProjectURL = projectURL.String
		if startedAt.Valid {
			t := startedAt.Time
			taskLog.StartedAt = &t
		}
		if completedAt.Valid {
			t := completedAt.Time
			taskLog.CompletedAt = &t
		}

		logs = append(logs, &taskLog)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return logs, nil
}

// CountByStatus implements store.TaskLogStore.CountByStatus
func (s *PostgresTaskLogStore) CountByStatus(ctx context.Context, taskID uuid.UUID) (map[domain.TaskLogStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM task_logs
		WHERE task_id = $1
		GROUP BY status
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.TaskLogStatus]int)
	for rows.Next() {
		var (
			status domain.TaskLogStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, MapError(err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return counts, nil
}

// WithTx implements store.TaskLogStore.WithTx
func (s *PostgresTaskLogStore) WithTx(tx *sql.Tx) store.TaskLogStore {
	return &PostgresTaskLogStore{
		db:     tx,
		logger: s.logger,
	}
}
