package postgres

import (
	"context"
	"log/slog"

	"quietmap/pkg/e"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Stats struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStats(pool *pgxpool.Pool, logger *slog.Logger) *Stats {
	return &Stats{pool: pool, logger: logger}
}

func (s *Stats) CountReports(ctx context.Context) (int64, error) {
	const op = "postgres.Stats.CountReports"

	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports`).Scan(&count); err != nil {
		s.logger.Error("db count failed", slog.String("op", op), slog.Any("error", err))
		return 0, e.WrapError(ctx, op, err)
	}
	return count, nil
}

func (s *Stats) CountReviews(ctx context.Context) (int64, error) {
	const op = "postgres.Stats.CountReviews"

	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&count); err != nil {
		s.logger.Error("db count failed", slog.String("op", op), slog.Any("error", err))
		return 0, e.WrapError(ctx, op, err)
	}
	return count, nil
}
