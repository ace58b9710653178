package workers

import (
	"context"
	"log/slog"
	"time"

	"quietmap/internal/domain"
)

type ReportSource interface {
	Recent(ctx context.Context, limit int) ([]domain.Report, error)
}

type SnapshotCache interface {
	Set(ctx context.Context, reports []domain.Report, ttl time.Duration) error
}

// SnapshotRefresher periodically rebuilds the recent-reports cache from
// Postgres. Mutations invalidate the cache inline; this loop is the backstop
// that keeps joins cheap when the cache expired or an invalidation was
// missed.
type SnapshotRefresher struct {
	reports  ReportSource
	cache    SnapshotCache
	logger   *slog.Logger
	interval time.Duration
	limit    int
	ttl      time.Duration
}

func NewSnapshotRefresher(
	reports ReportSource,
	cache SnapshotCache,
	logger *slog.Logger,
	interval time.Duration,
	limit int,
	ttl time.Duration,
) *SnapshotRefresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if limit <= 0 {
		limit = 100
	}
	return &SnapshotRefresher{
		reports:  reports,
		cache:    cache,
		logger:   logger,
		interval: interval,
		limit:    limit,
		ttl:      ttl,
	}
}

func (w *SnapshotRefresher) Run(ctx context.Context) {
	w.logger.Info("snapshot refresher started", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("snapshot refresher stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *SnapshotRefresher) refresh(ctx context.Context) {
	reports, err := w.reports.Recent(ctx, w.limit)
	if err != nil {
		w.logger.Error("snapshot refresh read failed", slog.Any("error", err))
		return
	}
	if err := w.cache.Set(ctx, reports, w.ttl); err != nil {
		w.logger.Error("snapshot refresh write failed", slog.Any("error", err))
		return
	}
	w.logger.Debug("snapshot cache refreshed", slog.Int("reports", len(reports)))
}
