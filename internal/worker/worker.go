// Package worker runs periodic background maintenance.
//
// The only scheduled task today is expired-session cleanup; the Task
// interface keeps the runner open for more.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of periodic maintenance work.
type Task interface {
	// Name identifies the task in logs.
	Name() string

	// Run executes the task once.
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t TaskFunc) Name() string                  { return t.TaskName }
func (t TaskFunc) Run(ctx context.Context) error { return t.Fn(ctx) }

// Worker runs registered tasks on a fixed interval.
type Worker struct {
	interval time.Duration
	tasks    []Task
	logger   *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a Worker. Interval must be positive; an hour is a sensible
// default for session cleanup.
func New(interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Register adds a task. Call before Start.
func (w *Worker) Register(task Task) {
	w.tasks = append(w.tasks, task)
	w.logger.Debug("registered maintenance task", "task", task.Name())
}

// Start launches the runner goroutine. Tasks run once immediately, then on
// every tick until Stop is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.runAll(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.runAll(ctx)
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.logger.Info("maintenance worker started", "interval", w.interval, "tasks", len(w.tasks))
}

// Stop signals the runner to stop and waits for the in-flight pass.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.logger.Info("maintenance worker stopped")
}

func (w *Worker) runAll(ctx context.Context) {
	for _, task := range w.tasks {
		start := time.Now()
		if err := task.Run(ctx); err != nil {
			w.logger.Error("maintenance task failed",
				"task", task.Name(),
				"error", err,
			)
			continue
		}
		w.logger.Debug("maintenance task completed",
			"task", task.Name(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
