package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/ports"
)

// Scheduler wires the tick driver to the cycle orchestrator. The cycle guard
// makes repeated triggering inside the same period a no-op, so the driver can
// fire as often as it likes.
type Scheduler struct {
	driver ports.CycleDriver
	cycle  *Cycle
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring cycle runs.
func NewScheduler(driver ports.CycleDriver, cycle *Cycle, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, cycle: cycle, logger: logger}
}

// Start registers the cycle with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.cycle == nil {
		return nil
	}

	job := func(trigger time.Time) {
		result, err := s.cycle.Run(ctx, false)
		if err != nil && s.logger != nil {
			s.logger.Error("cycle run failed",
				"cycle", result.CycleID, "state", string(result.State), "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
