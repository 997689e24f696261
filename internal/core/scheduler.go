package core

// scheduler.go runs the merge on a fixed interval.
//
// The scheduler is long-running and context-aware for graceful shutdown.
// A failed run is logged and retried on the next tick; it never stops the
// scheduler.

import (
	"context"
	"time"
)

// ScheduleConfig holds settings for the merge scheduler.
type ScheduleConfig struct {
	Interval time.Duration // How often to run (default: 1h)
	Request  RunRequest    // The run to repeat
}

// StartMergeScheduler runs cfg.Request immediately, then every Interval,
// until ctx is cancelled.
func (s *Service) StartMergeScheduler(ctx context.Context, cfg ScheduleConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	s.logger.Info("merge scheduler started",
		"interval", cfg.Interval,
		"main_event", cfg.Request.MainEvent,
		"sub_event", cfg.Request.SubEvent,
	)

	s.runScheduled(ctx, cfg.Request)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("merge scheduler stopped")
			return
		case <-ticker.C:
			s.runScheduled(ctx, cfg.Request)
		}
	}
}

// runScheduled performs one scheduled run.
func (s *Service) runScheduled(ctx context.Context, req RunRequest) {
	if ctx.Err() != nil {
		return
	}
	res, err := s.Run(ContextWithTrigger(ctx, TriggerSchedule), req)
	if err != nil {
		s.logger.Error("scheduled run failed", "error", err, "code", MapError(err).Code)
		return
	}
	s.logger.Debug("scheduled run finished", "run_id", res.ID, "rows", res.Rows)
}
