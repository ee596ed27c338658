package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("creates pending task", func(t *testing.T) {
		t.Parallel()
		task, err := NewTask(userID, "https://example.com/invite/abc", 5)
		require.NoError(t, err)

		assert.Equal(t, TaskStatusPending, task.Status)
		assert.Equal(t, 5, task.QuantityRequested)
		assert.Equal(t, 0, task.QuantityCompleted)
		assert.NotEqual(t, uuid.Nil, task.ID)
	})

	t.Run("rejects invalid invite link", func(t *testing.T) {
		t.Parallel()
		_, err := NewTask(userID, "not-a-url", 5)
		assert.ErrorIs(t, err, ErrInvalidInviteLink)
	})

	t.Run("rejects quantity out of range", func(t *testing.T) {
		t.Parallel()
		_, err := NewTask(userID, "https://example.com/invite", 0)
		assert.ErrorIs(t, err, ErrQuantityOutOfRange)

		_, err = NewTask(userID, "https://example.com/invite", 101)
		assert.ErrorIs(t, err, ErrQuantityOutOfRange)
	})

	t.Run("rejects missing user", func(t *testing.T) {
		t.Parallel()
		_, err := NewTask(uuid.Nil, "https://example.com/invite", 5)
		assert.ErrorIs(t, err, ErrEmptyTaskUserID)
	})
}

func TestTaskCancel(t *testing.T) {
	t.Parallel()

	t.Run("cancels pending task", func(t *testing.T) {
		t.Parallel()
		task, err := NewTask(uuid.New(), "https://example.com/invite", 3)
		require.NoError(t, err)

		require.NoError(t, task.Cancel())
		assert.Equal(t, TaskStatusCancelled, task.Status)
		assert.True(t, task.IsFinal())
	})

	t.Run("rejects cancel once processing", func(t *testing.T) {
		t.Parallel()
		task, err := NewTask(uuid.New(), "https://example.com/invite", 3)
		require.NoError(t, err)
		task.Status = TaskStatusProcessing

		assert.ErrorIs(t, task.Cancel(), ErrTaskNotCancellable)
		assert.Equal(t, TaskStatusProcessing, task.Status)
	})
}

func TestTaskProgressPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requested int
		completed int
		failed    int
		want      int
	}{
		{"nothing settled", 5, 0, 0, 0},
		{"partial", 5, 2, 1, 60},
		{"all settled", 5, 4, 1, 100},
		{"rounding", 3, 1, 0, 33},
		{"rounding up", 3, 2, 0, 67},
		{"zero requested", 0, 0, 0, 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			task := &Task{
				QuantityRequested: tc.requested,
				QuantityCompleted: tc.completed,
				QuantityFailed:    tc.failed,
			}
			assert.Equal(t, tc.want, task.ProgressPercent())
		})
	}
}

func TestTaskLogSettlement(t *testing.T) {
	t.Parallel()

	t.Run("settles success with project identifiers", func(t *testing.T) {
		t.Parallel()
		log, err := NewTaskLog(uuid.New(), 1, "acct_123_0_abc@temp.local")
		require.NoError(t, err)

		require.NoError(t, log.MarkSuccess("proj-1", "https://app.example.com/proj-1"))
		assert.Equal(t, TaskLogStatusSuccess, log.Status)
		assert.Equal(t, "proj-1", log.ProjectID)
		assert.NotNil(t, log.CompletedAt)
	})

	t.Run("settles failure with message", func(t *testing.T) {
		t.Parallel()
		log, err := NewTaskLog(uuid.New(), 2, "acct_123_1_def@temp.local")
		require.NoError(t, err)

		require.NoError(t, log.MarkFailed("invite rejected"))
		assert.Equal(t, TaskLogStatusFailed, log.Status)
		assert.Equal(t, "invite rejected", log.ErrorMessage)
	})

	t.Run("settles exactly once", func(t *testing.T) {
		t.Parallel()
		log, err := NewTaskLog(uuid.New(), 3, "acct_123_2_ghi@temp.local")
		require.NoError(t, err)

		require.NoError(t, log.MarkSuccess("proj-2", ""))
		assert.ErrorIs(t, log.MarkFailed("too late"), ErrTaskLogAlreadySettled)
		assert.ErrorIs(t, log.MarkSuccess("proj-3", ""), ErrTaskLogAlreadySettled)
		assert.Equal(t, "proj-2", log.ProjectID)
	})

	t.Run("rejects non-positive account number", func(t *testing.T) {
		t.Parallel()
		_, err := NewTaskLog(uuid.New(), 0, "acct@temp.local")
		assert.ErrorIs(t, err, ErrInvalidAccountNumber)
	})
}
