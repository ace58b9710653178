package postgres

import (
	"context"
	"log/slog"

	"quietmap/internal/domain"
	"quietmap/pkg/e"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewReportStore(pool *pgxpool.Pool, logger *slog.Logger) *ReportStore {
	return &ReportStore{pool: pool, logger: logger}
}

func (p *ReportStore) Insert(ctx context.Context, report *domain.Report) error {
	const op = "postgres.Report.Insert"

	// Reports without coordinates are rejected upstream; the NOT NULL
	// columns back that invariant up at the store.
	if report.Coordinates == nil {
		return e.Wrap(op, e.ErrInvalidCoordinates)
	}

	const query = `
		INSERT INTO reports (id, lat, lng, level, location_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := p.pool.Exec(ctx, query,
		report.ID,
		report.Coordinates.Lat,
		report.Coordinates.Lng,
		report.Level,
		report.LocationName,
		report.CreatedAt,
	)
	if err != nil {
		p.logger.Error("db exec failed",
			slog.String("op", op),
			slog.Any("error", err),
		)
		return e.WrapError(ctx, op, err)
	}

	return nil
}

func (p *ReportStore) Recent(ctx context.Context, limit int) ([]domain.Report, error) {
	const op = "postgres.Report.Recent"

	if limit <= 0 {
		limit = 100
	}

	const query = `
		SELECT id, lat, lng, level, location_name, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	reports := make([]domain.Report, 0, limit)
	for rows.Next() {
		var (
			r        domain.Report
			lat, lng float64
		)
		if err := rows.Scan(&r.ID, &lat, &lng, &r.Level, &r.LocationName, &r.CreatedAt); err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		r.Coordinates = &domain.Coordinates{Lat: lat, Lng: lng}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return reports, nil
}

func (p *ReportStore) Delete(ctx context.Context, id string) (bool, error) {
	const op = "postgres.Report.Delete"

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		p.logger.Error("begin tx failed", slog.String("op", op), slog.Any("error", err))
		return false, e.WrapError(ctx, op, err)
	}
	defer tx.Rollback(ctx)

	// Reviews go first; without a foreign key the cascade is explicit.
	if _, err := tx.Exec(ctx, `DELETE FROM reviews WHERE report_id = $1`, id); err != nil {
		p.logger.Error("delete reviews failed", slog.String("op", op), slog.Any("error", err))
		return false, e.WrapError(ctx, op, err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		p.logger.Error("delete report failed", slog.String("op", op), slog.Any("error", err))
		return false, e.WrapError(ctx, op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		p.logger.Error("commit failed", slog.String("op", op), slog.Any("error", err))
		return false, e.WrapError(ctx, op, err)
	}

	return tag.RowsAffected() > 0, nil
}
