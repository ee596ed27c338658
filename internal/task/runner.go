package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/provix/provix-api/internal/store"
	"github.com/provix/provix-api/internal/telemetry"
)

// RunnerConfig holds configuration for the task runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks.
	WorkerCount int

	// PollInterval is how often idle workers check for pending tasks.
	// Wake notifications short-circuit the wait.
	PollInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:  2,
		PollInterval: 5 * time.Second,
	}
}

// Runner pulls pending tasks from the store and hands them to the
// processor. Claims go through the store's atomic claim, so any number of
// workers (here or in other replicas) can run without double-processing.
type Runner struct {
	taskStore  store.TaskStore
	processor  *Processor
	config     RunnerConfig
	logger     *slog.Logger
	wake       chan struct{}
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewRunner creates a new Runner.
func NewRunner(taskStore store.TaskStore, processor *Processor, config RunnerConfig, log *slog.Logger) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultRunnerConfig().WorkerCount
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRunnerConfig().PollInterval
	}
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		taskStore:  taskStore,
		processor:  processor,
		config:     config,
		logger:     log.With(slog.String("component", "task_runner")),
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start recovers tasks interrupted by a previous crash and launches the
// worker goroutines.
func (r *Runner) Start() error {
	reset, err := r.taskStore.ResetInterrupted(r.ctx)
	if err != nil {
		return fmt.Errorf("failed to reset interrupted tasks: %w", err)
	}
	if reset > 0 {
		r.logger.Info("reset interrupted tasks to pending",
			slog.Int("count", reset))
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.logger.Info("task runner started",
		slog.Int("worker_count", r.config.WorkerCount),
		slog.Duration("poll_interval", r.config.PollInterval))
	return nil
}

// Stop shuts the runner down and waits for in-flight tasks to return.
// Tasks interrupted mid-processing are recovered on next start.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// Wake nudges an idle worker to poll immediately. Non-blocking; a single
// buffered slot is enough because workers drain all pending tasks per
// poll.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// worker claims and processes tasks until the runner stops. After draining
// all pending work it sleeps until the next poll tick or wake.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	log := r.logger.With(slog.Int("worker", id))
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		r.drain(log)

		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// drain claims and processes pending tasks until none remain.
func (r *Runner) drain(log *slog.Logger) {
	for {
		if r.ctx.Err() != nil {
			return
		}

		task, err := r.taskStore.ClaimNextPending(r.ctx)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Error("failed to claim task",
					slog.String("error", err.Error()))
			}
			return
		}

		telemetry.TasksClaimed.Inc()
		if err := r.processor.Process(r.ctx, task); err != nil {
			log.Error("task processing failed",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
		}
	}
}
