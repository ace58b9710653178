package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"quietmap/internal/domain"
	"quietmap/internal/ws"
	"quietmap/pkg/e"

	"github.com/google/uuid"
)

type reportService struct {
	repo          ReportRepository
	cache         SnapshotCache
	broadcaster   Broadcaster
	logger        *slog.Logger
	snapshotLimit int
	snapshotTTL   time.Duration
}

func NewReportService(
	repo ReportRepository,
	cache SnapshotCache,
	broadcaster Broadcaster,
	logger *slog.Logger,
	snapshotLimit int,
	snapshotTTL time.Duration,
) ReportService {
	if snapshotLimit <= 0 {
		snapshotLimit = 100
	}
	if snapshotTTL <= 0 {
		snapshotTTL = time.Minute
	}
	return &reportService{
		repo:          repo,
		cache:         cache,
		broadcaster:   broadcaster,
		logger:        logger,
		snapshotLimit: snapshotLimit,
		snapshotTTL:   snapshotTTL,
	}
}

// Snapshot returns the most recent reports, newest first, cache-aside: a
// warm Redis value is served directly, a miss reads Postgres and re-warms.
// Cache errors degrade to the store, never to the caller.
func (s *reportService) Snapshot(ctx context.Context) ([]domain.Report, error) {
	cached, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("snapshot cache read failed", slog.Any("error", err))
	}
	if cached != nil {
		return cached, nil
	}

	reports, err := s.repo.Recent(ctx, s.snapshotLimit)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, reports, s.snapshotTTL); err != nil {
		s.logger.Warn("snapshot cache write failed", slog.Any("error", err))
	}

	return reports, nil
}

// Submit validates, clamps and persists one measurement, then broadcasts the
// canonical report to every session including the submitter. A validation
// failure returns ErrInvalidLevel/ErrInvalidCoordinates for the channel
// layer to turn into a rejection event; a persistence failure is returned
// after logging and nothing is broadcast.
func (s *reportService) Submit(ctx context.Context, req domain.SubmitReportRequest) (*domain.Report, error) {
	if req.Level == nil || math.IsNaN(*req.Level) || math.IsInf(*req.Level, 0) {
		s.logger.Warn("submission rejected: missing or non-numeric level")
		return nil, e.ErrInvalidLevel
	}
	if req.Coordinates == nil {
		s.logger.Warn("submission rejected: missing coordinates")
		return nil, e.ErrInvalidCoordinates
	}

	report := &domain.Report{
		ID:          uuid.NewString(),
		Level:       clampLevel(*req.Level),
		Coordinates: req.Coordinates,
		CreatedAt:   time.Now().UnixMilli(),
	}

	if err := s.repo.Insert(ctx, report); err != nil {
		s.logger.Error("report insert failed",
			slog.String("report_id", report.ID),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.invalidateSnapshot(ctx)
	s.broadcaster.Broadcast(ws.EventNewReport, report)

	s.logger.Info("report stored",
		slog.String("report_id", report.ID),
		slog.Int("level", report.Level),
		slog.Float64("lat", report.Coordinates.Lat),
		slog.Float64("lng", report.Coordinates.Lng),
	)
	return report, nil
}

// Delete removes the report row (reviews go with it) and always broadcasts
// marker_deleted, even when no row existed: deletion is idempotent at the
// protocol level, every session prunes its cache by the same id either way.
func (s *reportService) Delete(ctx context.Context, id string) error {
	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("report delete failed",
			slog.String("report_id", id),
			slog.Any("error", err),
		)
		return err
	}

	if !existed {
		s.logger.Debug("delete of unknown report id", slog.String("report_id", id))
	}

	s.invalidateSnapshot(ctx)
	s.broadcaster.Broadcast(ws.EventMarkerDeleted, id)
	return nil
}

// Seed inserts a sample report (Seoul City Hall by default) and broadcasts
// it like a normal submission. Admin tooling only.
func (s *reportService) Seed(ctx context.Context, req domain.SeedRequest) (*domain.Report, error) {
	lat, lng, level := 37.5665, 126.9780, 45.0
	if req.Lat != nil {
		lat = *req.Lat
	}
	if req.Lng != nil {
		lng = *req.Lng
	}
	if req.Level != nil {
		level = *req.Level
	}

	return s.Submit(ctx, domain.SubmitReportRequest{
		Level:       &level,
		Coordinates: &domain.Coordinates{Lat: lat, Lng: lng},
	})
}

func (s *reportService) invalidateSnapshot(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("snapshot cache invalidate failed", slog.Any("error", err))
	}
}

// clampLevel bounds the decibel value to the accepted domain and rounds to
// the nearest integer, halves away from zero. Clamping first keeps the
// round within [MinLevel, MaxLevel].
func clampLevel(level float64) int {
	if level > domain.MaxLevel {
		level = domain.MaxLevel
	}
	if level < domain.MinLevel {
		level = domain.MinLevel
	}
	return int(math.Round(level))
}
