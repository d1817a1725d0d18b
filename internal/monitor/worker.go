package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner is satisfied by *Monitor.
type Runner interface {
	Run(ctx context.Context) (*Summary, error)
}

// Worker triggers runs on a fixed interval in-process, for deployments
// without an external scheduler.
type Worker struct {
	runner   Runner
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func NewWorker(runner Runner, logger *slog.Logger, interval time.Duration) *Worker {
	if interval == 0 {
		interval = 5 * time.Minute
	}

	return &Worker{
		runner:   runner,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("budget monitor worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("budget monitor worker stopped")
			return
		case <-w.done:
			w.logger.Info("budget monitor worker stopped")
			return
		case <-ticker.C:
			w.process(ctx)
		}
	}
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Worker) process(ctx context.Context) {
	summary, err := w.runner.Run(ctx)
	if err != nil {
		w.logger.Error("budget monitor run failed", "error", err)
		return
	}
	if summary.Skipped {
		w.logger.Debug("budget monitor run skipped, lock held elsewhere")
	}
}
