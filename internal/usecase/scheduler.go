package usecase

import (
	"context"
	"log/slog"
	"time"

	"PosterIntake/internal/ports"
)

// Pruner is the periodic maintenance job run by the Scheduler.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// Scheduler wires the ticker driver with recency-key pruning.
type Scheduler struct {
	driver ports.Scheduler
	pruner Pruner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pruner Pruner, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pruner: pruner, logger: orDiscard(logger)}
}

// Start registers the prune job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pruner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		n, err := s.pruner.Prune(ctx)
		if err != nil {
			s.logger.Warn("prune failed", "trigger", trigger, "error", err)
			return
		}
		if n > 0 {
			s.logger.Debug("pruned recency keys", "count", n)
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
