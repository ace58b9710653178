package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"quietmap/internal/config"
	"quietmap/pkg/e"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	Pool   *pgxpool.Pool
	Report ReportRepository
	Review ReviewRepository
	Stat   StatsRepository
}

func NewPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Database,
		cfg.Postgres.SSLMode,
	)

	logger.Info("Connecting to Postgres",
		slog.String("host", cfg.Postgres.Host),
		slog.String("database", cfg.Postgres.Database),
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("Failed to parse pgx config", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.ParseConfig", err)
	}
	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.MinConns = cfg.Postgres.MinConns
	poolCfg.MaxConnLifetime = cfg.Postgres.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("Failed to create pgx pool", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.NewWithConfig", err)
	}

	logger.Info("Pinging Postgres database")
	if err := pool.Ping(ctx); err != nil {
		logger.Error("Failed to ping Postgres database", slog.String("error", err.Error()))
		pool.Close()
		return nil, e.Wrap("storage.pg.NewPostgres.Ping", err)
	}
	logger.Info("Connected to Postgres successfully")

	if err := EnsureSchema(ctx, pool); err != nil {
		logger.Error("Failed to ensure schema", slog.String("error", err.Error()))
		pool.Close()
		return nil, e.Wrap("storage.pg.NewPostgres.EnsureSchema", err)
	}

	pg := &Postgres{
		Pool:   pool,
		Report: NewReportStore(pool, logger),
		Review: NewReviewStore(pool, logger),
		Stat:   NewStats(pool, logger),
	}

	logger.Info("Postgres repositories created")
	return pg, nil
}

// EnsureSchema creates the tables on startup, mirroring the original
// file-backed deployment where the store bootstrapped itself.
//
// reviews.report_id deliberately carries no foreign key: a review racing a
// concurrent report deletion must be stored, not rejected (the accepted
// data-quality gap). Cascade removal of reviews happens inside the report
// delete transaction instead.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id            TEXT PRIMARY KEY,
	lat           DOUBLE PRECISION NOT NULL,
	lng           DOUBLE PRECISION NOT NULL,
	level         INTEGER NOT NULL,
	location_name TEXT,
	created_at    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC);

CREATE TABLE IF NOT EXISTS reviews (
	id         BIGSERIAL PRIMARY KEY,
	report_id  TEXT NOT NULL,
	text       TEXT NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_report_id ON reviews (report_id, created_at DESC);

CREATE TABLE IF NOT EXISTS review_tags (
	review_id BIGINT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	tag       TEXT NOT NULL,
	PRIMARY KEY (review_id, position)
);
`
	_, err := pool.Exec(ctx, schema)
	return err
}
