package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ContributionScorer/internal/ports"
	"ContributionScorer/pkg/logger"
)

// Scheduler wires the cron drivers with the pipeline and reconciler use cases.
type Scheduler struct {
	slices     ports.Scheduler
	sweeps     ports.Scheduler
	pipeline   *Pipeline
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs. Either driver
// may be nil to disable that job.
func NewScheduler(slices, sweeps ports.Scheduler, pipeline *Pipeline, reconciler *Reconciler, log *slog.Logger) *Scheduler {
	return &Scheduler{
		slices:     slices,
		sweeps:     sweeps,
		pipeline:   pipeline,
		reconciler: reconciler,
		logger:     logger.OrDiscard(log),
	}
}

// Start registers both jobs with their drivers.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.slices != nil && s.pipeline != nil {
		err := s.slices.Start(ctx, func(trigger time.Time) {
			if _, err := s.pipeline.RunSlice(ctx); err != nil {
				s.logger.Error("scheduled slice failed", "trigger", trigger, "error", err)
			}
		})
		if err != nil {
			return err
		}
	}

	if s.sweeps != nil && s.reconciler != nil {
		err := s.sweeps.Start(ctx, func(trigger time.Time) {
			if _, err := s.reconciler.Run(ctx); err != nil {
				s.logger.Error("scheduled reconcile failed", "trigger", trigger, "error", err)
			}
		})
		if err != nil {
			return errors.Join(err, s.Stop(ctx))
		}
	}

	return nil
}

// Stop gracefully tears down the underlying schedulers.
func (s *Scheduler) Stop(ctx context.Context) error {
	var errs []error
	for _, d := range []ports.Scheduler{s.slices, s.sweeps} {
		if d == nil {
			continue
		}
		if err := d.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
