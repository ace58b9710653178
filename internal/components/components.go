package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"quietmap/internal/api"
	"quietmap/internal/config"
	"quietmap/internal/redis"
	"quietmap/internal/service"
	"quietmap/internal/storage/postgres"
	"quietmap/internal/workers"
	"quietmap/internal/ws"
	"quietmap/pkg/logger"
)

type Components struct {
	logger     *slog.Logger
	HttpServer *api.Server
	Hub        *ws.Hub
	Postgres   *postgres.Postgres
	Redis      *redis.Redis
	Refresher  *workers.SnapshotRefresher
}

func InitComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	logger.Info("Initializing Postgres")

	storage, err := postgres.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to init postgres",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	logger.Info("Initializing Redis")
	redisClient, err := redis.NewRedis(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	snapshotCache := redis.NewSnapshotCache(redisClient)

	hub := ws.NewHub(logger, cfg.Hub.SessionBuffer)

	reportSvc := service.NewReportService(
		storage.Reports(),
		snapshotCache,
		hub,
		logger,
		cfg.Hub.SnapshotLimit,
		cfg.Hub.SnapshotTTL,
	)
	reviewSvc := service.NewReviewService(storage.Reviews(), hub, logger)
	statsSvc := service.NewStatsService(storage.Stats(), hub)

	svc := service.NewService(reportSvc, reviewSvc, statsSvc)

	refresher := workers.NewSnapshotRefresher(
		storage.Reports(),
		snapshotCache,
		logger,
		cfg.Hub.RefreshInterval,
		cfg.Hub.SnapshotLimit,
		cfg.Hub.SnapshotTTL,
	)

	httpServer := api.NewServer(ctx, cfg, logger, svc, hub)
	logger.Info("Initialized server")

	return &Components{
		logger:     logger,
		HttpServer: httpServer,
		Hub:        hub,
		Postgres:   storage,
		Redis:      redisClient,
		Refresher:  refresher,
	}, nil
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return logger.SetupPrettySlog()
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Shutting down components")

	c.Postgres.Pool.Close()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.String("err", err.Error()))
		}
	}

	c.logger.Info("All components stopped",
		slog.Duration("latency", time.Since(start)))
}
