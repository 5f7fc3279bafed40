package core

// scheduler.go runs background maintenance for the activity log.
//
// The pruner deletes activity older than the configured retention. It logs
// failures and keeps running; a failed pass is retried on the next tick.

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/dailyfinance/internal/config"
)

// StartAuditPruner deletes expired activity immediately and then every
// PruneInterval until ctx is cancelled. It returns at once when retention is
// disabled or the store keeps no activity log.
func (s *Service) StartAuditPruner(ctx context.Context, cfg config.AuditConfig) {
	if s.audit == nil || cfg.Retention <= 0 || cfg.PruneInterval <= 0 {
		slog.Debug("audit pruner disabled")
		return
	}

	slog.Info("audit pruner started",
		"retention", cfg.Retention.String(),
		"interval", cfg.PruneInterval.String(),
	)

	s.pruneAudit(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("audit pruner stopped")
			return
		case <-ticker.C:
			s.pruneAudit(ctx, cfg.Retention)
		}
	}
}

// pruneAudit performs one purge pass and returns the number of rows removed.
func (s *Service) pruneAudit(ctx context.Context, retention time.Duration) int64 {
	start := time.Now()
	cutoff := start.Add(-retention)

	purged, err := s.audit.PurgeAudit(ctx, cutoff)
	if err != nil {
		slog.Error("audit purge failed", "error", err)
		return 0
	}
	slog.Info("purged activity log",
		"entries_purged", purged,
		"cutoff", cutoff.UTC().Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
