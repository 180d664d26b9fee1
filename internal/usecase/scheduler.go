package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsRefinery/internal/ports"
)

// Scheduler wires the cron driver with the batch pipeline.
type Scheduler struct {
	driver     ports.Scheduler
	pipeline   *Pipeline
	runTimeout time.Duration
	logger     *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, runTimeout: runTimeout, logger: logger}
}

// Start registers the pipeline with the provided scheduler. Each run
// gets its own deadline; items still unprocessed when it expires are
// simply retried on the next run, which dedup makes idempotent.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		runCtx := ctx
		cancel := context.CancelFunc(func() {})
		if s.runTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		}
		defer cancel()

		result, err := s.pipeline.Run(runCtx)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
			}
			return
		}
		if s.logger != nil {
			s.logger.Info("scheduled run finished",
				"trigger", trigger,
				"total", result.Total,
				"succeeded", result.Succeeded,
				"failed", result.Failed)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
