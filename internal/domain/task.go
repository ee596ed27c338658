package domain

import (
	"errors"
	"math"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a provisioning task
type TaskStatus string

// Possible task status values. pending moves to processing when a worker
// claims the task, or to cancelled on user request. processing settles as
// completed or failed. Terminal states are final.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Limits for task creation
const (
	MinTaskQuantity = 1
	MaxTaskQuantity = 100
)

// Common validation errors for Task
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID    = errors.New("task user ID cannot be empty")
	ErrInvalidInviteLink  = errors.New("invite link must be a valid URL")
	ErrQuantityOutOfRange = errors.New("quantity must be between 1 and 100")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrTaskNotCancellable = errors.New("only pending tasks can be cancelled")
)

// Task is one user-submitted batch request to provision N accounts.
// After creation the row is exclusively owned and mutated by the task
// processor. Completed/failed quantities are re-derived from task logs
// rather than trusted as independent counters.
type Task struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	InviteLink        string     `json:"invite_link"`
	QuantityRequested int        `json:"quantity_requested"`
	QuantityCompleted int        `json:"quantity_completed"`
	QuantityFailed    int        `json:"quantity_failed"`
	Status            TaskStatus `json:"status"`
	CreditsUsed       int        `json:"credits_used"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewTask creates a pending task for the given user.
func NewTask(userID uuid.UUID, inviteLink string, quantity int) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:                uuid.New(),
		UserID:            userID,
		InviteLink:        inviteLink,
		QuantityRequested: quantity,
		Status:            TaskStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}

	u, err := url.Parse(t.InviteLink)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidInviteLink
	}

	if t.QuantityRequested < MinTaskQuantity || t.QuantityRequested > MaxTaskQuantity {
		return ErrQuantityOutOfRange
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// IsFinal reports whether the task has reached a terminal state.
func (t *Task) IsFinal() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Cancel transitions a pending task to cancelled.
// Returns ErrTaskNotCancellable for any other starting state.
func (t *Task) Cancel() error {
	if t.Status != TaskStatusPending {
		return ErrTaskNotCancellable
	}

	t.Status = TaskStatusCancelled
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// ProgressPercent derives completion progress from settled slot counts.
func (t *Task) ProgressPercent() int {
	if t.QuantityRequested <= 0 {
		return 0
	}
	settled := t.QuantityCompleted + t.QuantityFailed
	return int(math.Round(float64(settled) / float64(t.QuantityRequested) * 100))
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskLogStatus represents the state of one provisioning attempt
type TaskLogStatus string

// Possible task log status values
const (
	TaskLogStatusPending    TaskLogStatus = "pending"
	TaskLogStatusProcessing TaskLogStatus = "processing"
	TaskLogStatusSuccess    TaskLogStatus = "success"
	TaskLogStatusFailed     TaskLogStatus = "failed"
)

// Common validation errors for TaskLog
var (
	ErrEmptyTaskLogID        = errors.New("task log ID cannot be empty")
	ErrEmptyTaskLogTaskID    = errors.New("task log task ID cannot be empty")
	ErrInvalidAccountNumber  = errors.New("account number must be positive")
	ErrInvalidTaskLogStatus  = errors.New("invalid task log status")
	ErrTaskLogAlreadySettled = errors.New("task log already settled")
)

// TaskLog records one individual provisioning attempt within a task.
// AccountNumber is 1-based and unique per task. A log settles to
// success or failed exactly once. Generated passwords are never
// persisted; the synthetic email and resulting project identifiers are.
type TaskLog struct {
	ID            uuid.UUID     `json:"id"`
	TaskID        uuid.UUID     `json:"task_id"`
	AccountNumber int           `json:"account_number"`
	Email         string        `json:"email,omitempty"`
	Status        TaskLogStatus `json:"status"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	ProjectID     string        `json:"project_id,omitempty"`
	ProjectURL    string        `json:"project_url,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewTaskLog creates a pending log entry for one account slot.
func NewTaskLog(taskID uuid.UUID, accountNumber int, email string) (*TaskLog, error) {
	log := &TaskLog{
		ID:            uuid.New(),
		TaskID:        taskID,
		AccountNumber: accountNumber,
		Email:         email,
		Status:        TaskLogStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := log.Validate(); err != nil {
		return nil, err
	}

	return log, nil
}

// Validate checks if the TaskLog has valid data.
func (l *TaskLog) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyTaskLogID
	}

	if l.TaskID == uuid.Nil {
		return ErrEmptyTaskLogTaskID
	}

	if l.AccountNumber < 1 {
		return ErrInvalidAccountNumber
	}

	if !isValidTaskLogStatus(l.Status) {
		return ErrInvalidTaskLogStatus
	}

	return nil
}

// IsSettled reports whether the log reached a terminal state.
func (l *TaskLog) IsSettled() bool {
	return l.Status == TaskLogStatusSuccess || l.Status == TaskLogStatusFailed
}

// MarkSuccess settles the log as successful, recording project identifiers.
func (l *TaskLog) MarkSuccess(projectID, projectURL string) error {
	if l.IsSettled() {
		return ErrTaskLogAlreadySettled
	}

	now := time.Now().UTC()
	l.Status = TaskLogStatusSuccess
	l.ProjectID = projectID
	l.ProjectURL = projectURL
	l.CompletedAt = &now
	return nil
}

// MarkFailed settles the log as failed with the final error message.
func (l *TaskLog) MarkFailed(errorMessage string) error {
	if l.IsSettled() {
		return ErrTaskLogAlreadySettled
	}

	now := time.Now().UTC()
	l.Status = TaskLogStatusFailed
	l.ErrorMessage = errorMessage
	l.CompletedAt = &now
	return nil
}

// isValidTaskLogStatus checks if the given status is a valid TaskLogStatus.
func isValidTaskLogStatus(status TaskLogStatus) bool {
	switch status {
	case TaskLogStatusPending, TaskLogStatusProcessing,
		TaskLogStatusSuccess, TaskLogStatusFailed:
		return true
	default:
		return false
	}
}
