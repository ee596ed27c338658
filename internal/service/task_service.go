package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/platform/logger"
	"github.com/provix/provix-api/internal/store"
)

// TaskNotifier wakes the task runner when new work exists. The runner's
// poll loop makes this advisory: a missed wake delays a task by at most
// one poll interval.
type TaskNotifier interface {
	Wake()
}

// TaskProgress is a task together with its per-slot logs and derived
// progress. Completed/failed counts come from the logs, not from counters
// stored on the task row, so in-flight tasks report truthfully.
type TaskProgress struct {
	Task            *domain.Task
	Logs            []*domain.TaskLog
	CompletedCount  int
	FailedCount     int
	ProgressPercent int
}

// TaskService provides the user-facing task operations: submission with
// the credit admission check, progress queries, and cancellation.
//
// Credit policy: credits are debited by the processor after all slots
// settle, for the full requested quantity ("pay for attempts"). Creation
// therefore performs an admission check only; the debit re-validates
// sufficiency when it runs. Under this model a cancelled pending task
// never debited anything, so cancellation refunds nothing.
type TaskService interface {
	// CreateTask validates the request, checks the user has enough
	// available credits, persists a pending task, and wakes the runner.
	// Returns ErrInsufficientCredits when the admission check fails.
	CreateTask(ctx context.Context, userID uuid.UUID, inviteLink string, quantity int) (*domain.Task, error)

	// GetTaskProgress returns a task with its logs and derived progress.
	// Returns ErrTaskNotFound or ErrNotOwned as appropriate.
	GetTaskProgress(ctx context.Context, userID, taskID uuid.UUID) (*TaskProgress, error)

	// ListTasks returns the user's tasks, newest first.
	ListTasks(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// CancelTask cancels a still-pending task.
	// Returns ErrTaskNotCancellable once processing has begun.
	CancelTask(ctx context.Context, userID, taskID uuid.UUID) error
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore    store.TaskStore
	taskLogStore store.TaskLogStore
	creditStore  store.CreditStore
	notifier     TaskNotifier
	logger       *slog.Logger
}

// Ensure taskServiceImpl implements the TaskService interface
var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a new TaskService. notifier may be nil, in which
// case newly created tasks wait for the runner's next poll.
func NewTaskService(
	taskStore store.TaskStore,
	taskLogStore store.TaskLogStore,
	creditStore store.CreditStore,
	notifier TaskNotifier,
	log *slog.Logger,
) TaskService {
	if log == nil {
		log = slog.Default()
	}

	return &taskServiceImpl{
		taskStore:    taskStore,
		taskLogStore: taskLogStore,
		creditStore:  creditStore,
		notifier:     notifier,
		logger:       log.With(slog.String("component", "task_service")),
	}
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(ctx context.Context, userID uuid.UUID, inviteLink string, quantity int) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(userID, inviteLink, quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Admission check. This is a check, not a reservation: the processor
	// re-validates sufficiency when it debits after the slots settle.
	balance, err := s.creditStore.GetBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check credit balance: %w", err)
	}
	if balance.Available < quantity {
		log.Warn("task creation rejected: insufficient credits",
			slog.String("user_id", userID.String()),
			slog.Int("available", balance.Available),
			slog.Int("requested", quantity))
		return nil, ErrInsufficientCredits
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Wake()
	}

	log.Info("task submitted",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", userID.String()),
		slog.Int("quantity", quantity))
	return task, nil
}

// GetTaskProgress implements TaskService.GetTaskProgress
func (s *taskServiceImpl) GetTaskProgress(ctx context.Context, userID, taskID uuid.UUID) (*TaskProgress, error) {
	task, err := s.getOwnedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	logs, err := s.taskLogStore.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task logs: %w", err)
	}

	var completed, failed int
	for _, l := range logs {
		switch l.Status {
		case domain.TaskLogStatusSuccess:
			completed++
		case domain.TaskLogStatusFailed:
			failed++
		}
	}

	// Counts derived from the logs supersede whatever the task row holds,
	// so a task mid-processing reports live progress.
	task.QuantityCompleted = completed
	task.QuantityFailed = failed

	return &TaskProgress{
		Task:            task,
		Logs:            logs,
		CompletedCount:  completed,
		FailedCount:     failed,
		ProgressPercent: task.ProgressPercent(),
	}, nil
}

// ListTasks implements TaskService.ListTasks
func (s *taskServiceImpl) ListTasks(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	tasks, err := s.taskStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// CancelTask implements TaskService.CancelTask
// Under the pay-for-attempts model nothing was debited yet, so no refund
// accompanies the cancellation.
func (s *taskServiceImpl) CancelTask(ctx context.Context, userID, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.getOwnedTask(ctx, userID, taskID)
	if err != nil {
		return err
	}

	if task.Status != domain.TaskStatusPending {
		return ErrTaskNotCancellable
	}

	cancelled, err := s.taskStore.MarkCancelled(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	if !cancelled {
		// The processor claimed the task between our read and the update.
		return ErrTaskNotCancellable
	}

	log.Info("task cancelled",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// getOwnedTask loads a task and enforces ownership.
func (s *taskServiceImpl) getOwnedTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	if task.UserID != userID {
		return nil, ErrNotOwned
	}

	return task, nil
}
