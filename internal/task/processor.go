// Package task contains the background pipeline that turns claimed tasks
// into provisioned accounts: the runner claims work and the processor
// drives each task's slots through retry-wrapped provisioning attempts,
// settles the logs, debits credits, and finishes the task.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/platform/logger"
	"github.com/provix/provix-api/internal/provisioning"
	"github.com/provix/provix-api/internal/retry"
	"github.com/provix/provix-api/internal/service"
	"github.com/provix/provix-api/internal/store"
	"github.com/provix/provix-api/internal/telemetry"
)

// Processor executes one claimed task end to end. It is stateless between
// tasks; one instance is shared by all workers.
type Processor struct {
	taskStore    store.TaskStore
	taskLogStore store.TaskLogStore
	credits      service.CreditService
	client       provisioning.Client
	policy       retry.Policy
	logger       *slog.Logger
}

// NewProcessor creates a Processor with the given dependencies.
func NewProcessor(
	taskStore store.TaskStore,
	taskLogStore store.TaskLogStore,
	credits service.CreditService,
	client provisioning.Client,
	policy retry.Policy,
	log *slog.Logger,
) *Processor {
	if log == nil {
		log = slog.Default()
	}

	return &Processor{
		taskStore:    taskStore,
		taskLogStore: taskLogStore,
		credits:      credits,
		client:       client,
		policy:       policy,
		logger:       log.With(slog.String("component", "task_processor")),
	}
}

// Process runs a claimed task to completion. The task must already be in
// processing state with started_at stamped by the claim.
//
// Each slot gets its own identity and retry-wrapped provisioning attempt;
// one slot failing does not abort the others. Slots that already settled
// in a previous run (an interrupted task reset back to pending) keep
// their outcome; their logs are reused rather than recreated. A fatal
// provisioning error aborts the remaining slots and fails the task
// without a debit. After all slots settle, the full requested quantity
// is debited and the task finishes as completed.
func (p *Processor) Process(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))

	telemetry.TasksInFlight.Inc()
	defer telemetry.TasksInFlight.Dec()

	log.Info("processing task",
		slog.Int("quantity", task.QuantityRequested))

	identities, err := provisioning.NewIdentities(task.QuantityRequested)
	if err != nil {
		return p.abort(ctx, task, fmt.Sprintf("failed to generate identities: %v", err))
	}

	// Logs unique on (task_id, account_number) survive a crashed worker;
	// pick them up so interrupted slots are re-attempted instead of
	// colliding on insert.
	priorLogs, err := p.taskLogStore.ListByTask(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("failed to load existing slot logs: %w", err)
	}
	prior := make(map[int]*domain.TaskLog, len(priorLogs))
	for _, l := range priorLogs {
		prior[l.AccountNumber] = l
	}

	var fatalMsg string
	for i, identity := range identities {
		if err := ctx.Err(); err != nil {
			// Shutdown mid-task: leave remaining slots untouched. The task
			// stays in processing and is reset to pending on next startup.
			return err
		}

		if slotLog := prior[i+1]; slotLog != nil && slotLog.IsSettled() {
			continue
		}

		slotErr := p.processSlot(ctx, task, i+1, identity, prior[i+1], log)
		if slotErr != nil && provisioning.IsFatal(slotErr) {
			fatalMsg = slotErr.Error()
			log.Error("fatal provisioning error, aborting remaining slots",
				slog.Int("account_number", i+1),
				slog.String("error", fatalMsg))
			break
		}
	}

	return p.finish(ctx, task, fatalMsg, log)
}

// processSlot drives one account slot: create or reuse the log, run the
// retry-wrapped attempt, settle the log. A non-nil slotLog is a leftover
// from an interrupted run; it is re-pointed at the fresh identity since
// generated passwords are never persisted. The returned error is the
// final provisioning failure, nil on success; log persistence failures
// are returned as-is and treated as non-fatal by the caller.
func (p *Processor) processSlot(ctx context.Context, task *domain.Task, accountNumber int, identity provisioning.Identity, slotLog *domain.TaskLog, log *slog.Logger) error {
	if slotLog == nil {
		newLog, err := domain.NewTaskLog(task.ID, accountNumber, identity.Email)
		if err != nil {
			return err
		}
		if err := p.taskLogStore.Create(ctx, newLog); err != nil {
			return err
		}
		slotLog = newLog
	} else {
		slotLog.Email = identity.Email
	}

	now := time.Now().UTC()
	slotLog.Status = domain.TaskLogStatusProcessing
	slotLog.StartedAt = &now
	if err := p.taskLogStore.Update(ctx, slotLog); err != nil {
		return err
	}

	var result *provisioning.Result
	attemptErr := p.policy.Execute(ctx, func(ctx context.Context) error {
		r, err := p.client.Attempt(ctx, provisioning.Request{
			InviteLink:  task.InviteLink,
			Email:       identity.Email,
			Password:    identity.Password,
			ProjectName: fmt.Sprintf("project-%d-%d", accountNumber, now.UnixMilli()),
		})
		if err != nil {
			return err
		}
		result = r
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		telemetry.SlotRetries.Inc()
		log.Warn("provisioning attempt failed, retrying",
			slog.Int("account_number", accountNumber),
			slog.Int("attempt", attempt),
			slog.Duration("next_delay", nextDelay),
			slog.String("error", err.Error()))
	})

	if attemptErr != nil {
		telemetry.SlotFailure.Inc()
		if err := slotLog.MarkFailed(attemptErr.Error()); err == nil {
			if updateErr := p.taskLogStore.Update(ctx, slotLog); updateErr != nil {
				log.Error("failed to persist slot failure",
					slog.Int("account_number", accountNumber),
					slog.String("error", updateErr.Error()))
			}
		}
		return attemptErr
	}

	telemetry.SlotSuccess.Inc()
	if err := slotLog.MarkSuccess(result.ProjectID, result.ProjectURL); err == nil {
		if updateErr := p.taskLogStore.Update(ctx, slotLog); updateErr != nil {
			log.Error("failed to persist slot success",
				slog.Int("account_number", accountNumber),
				slog.String("error", updateErr.Error()))
		}
	}

	log.Info("slot provisioned",
		slog.Int("account_number", accountNumber),
		slog.String("project_id", result.ProjectID))
	return nil
}

// finish derives the final counts from the logs and settles the task row.
// The debit happens only when every slot was actually attempted; a fatal
// abort leaves unattempted slots unpaid and fails the task.
func (p *Processor) finish(ctx context.Context, task *domain.Task, fatalMsg string, log *slog.Logger) error {
	counts, err := p.taskLogStore.CountByStatus(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("failed to count slot outcomes: %w", err)
	}

	task.QuantityCompleted = counts[domain.TaskLogStatusSuccess]
	task.QuantityFailed = counts[domain.TaskLogStatusFailed]

	now := time.Now().UTC()
	task.CompletedAt = &now

	switch {
	case fatalMsg != "":
		task.Status = domain.TaskStatusFailed
		task.ErrorMessage = fatalMsg
	default:
		// Pay for attempts: every slot ran to a terminal outcome, so the
		// full requested quantity is debited and the task completes even
		// when individual slots failed; the per-slot logs keep the
		// failures visible. The debit re-validates sufficiency; a user
		// whose balance vanished since admission fails the task instead
		// of going negative.
		debited, err := p.credits.Debit(ctx, task.UserID, task.QuantityRequested)
		if err != nil {
			return fmt.Errorf("failed to debit credits: %w", err)
		}
		if debited {
			task.CreditsUsed = task.QuantityRequested
			task.Status = domain.TaskStatusCompleted
		} else {
			task.Status = domain.TaskStatusFailed
			task.ErrorMessage = "insufficient credits at settlement"
		}
	}

	if err := p.taskStore.Finish(ctx, task); err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}

	if task.Status == domain.TaskStatusCompleted {
		telemetry.TasksCompleted.Inc()
	} else {
		telemetry.TasksFailed.Inc()
	}

	log.Info("task settled",
		slog.String("status", string(task.Status)),
		slog.Int("completed", task.QuantityCompleted),
		slog.Int("failed", task.QuantityFailed),
		slog.Int("credits_used", task.CreditsUsed))
	return nil
}

// abort fails a task before any slot ran.
func (p *Processor) abort(ctx context.Context, task *domain.Task, msg string) error {
	now := time.Now().UTC()
	task.Status = domain.TaskStatusFailed
	task.ErrorMessage = msg
	task.CompletedAt = &now

	if err := p.taskStore.Finish(ctx, task); err != nil {
		return fmt.Errorf("failed to abort task: %w", err)
	}

	telemetry.TasksFailed.Inc()
	return nil
}
