package core

// scheduler.go runs periodic maintenance for the upload service.
//
// Each cycle discards expired upload sessions and purges history entries
// older than the retention window, then sweeps any extra caches. The scheduler is long-running and stops
// when its context is cancelled. Failures are logged and retried on the
// next cycle.

import (
	"context"
	"log/slog"
	"time"
)

// MaintenanceConfig holds configuration for the maintenance scheduler.
type MaintenanceConfig struct {
	Interval         time.Duration // How often to run (default: 5m)
	HistoryRetention time.Duration // Age after which history is purged; 0 keeps everything
	Caches           []Sweeper     // Swept every cycle, e.g. the current-user cache
}

// Sweeper drops expired entries and reports how many it removed.
type Sweeper interface {
	Sweep() int
}

// StartMaintenance runs a maintenance cycle immediately and then every
// Interval until ctx is cancelled.
func (s *Service) StartMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	slog.Info("maintenance scheduler started",
		"interval", cfg.Interval,
		"history_retention", cfg.HistoryRetention,
	)

	s.runMaintenance(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.runMaintenance(ctx, cfg)
		}
	}
}

// runMaintenance performs one sweep + purge cycle.
func (s *Service) runMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	start := time.Now()

	if removed := s.Sweep(start); removed > 0 {
		slog.Info("expired upload sessions removed", "sessions_removed", removed)
	}

	if s.history != nil && cfg.HistoryRetention > 0 {
		purged, err := s.history.Purge(ctx, start.Add(-cfg.HistoryRetention))
		if err != nil {
			slog.Error("history purge failed", "error", err)
		} else if purged > 0 {
			slog.Info("purged old upload history", "entries_purged", purged)
		}
	}

	for _, c := range cfg.Caches {
		if removed := c.Sweep(); removed > 0 {
			slog.Debug("expired cache entries removed", "entries_removed", removed)
		}
	}

	slog.Debug("maintenance cycle completed", "duration_ms", time.Since(start).Milliseconds())
}
