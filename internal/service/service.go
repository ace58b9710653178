package service

import (
	"context"
	"time"

	"quietmap/internal/domain"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go

// ReportService owns the report lifecycle: snapshot replay for joiners,
// validated submission, idempotent deletion.
type ReportService interface {
	Snapshot(ctx context.Context) ([]domain.Report, error)
	Submit(ctx context.Context, req domain.SubmitReportRequest) (*domain.Report, error)
	Delete(ctx context.Context, id string) error
	Seed(ctx context.Context, req domain.SeedRequest) (*domain.Report, error)
}

type ReviewService interface {
	Submit(ctx context.Context, req domain.SubmitReviewRequest) error
	// List never fails: a read error degrades to an empty slice.
	List(ctx context.Context, reportID string) []domain.Review
}

type StatsService interface {
	GetStats(ctx context.Context) (*domain.MapStats, error)
}

// Broadcaster fans one event out to every connected session, including the
// originator. Implemented by ws.Hub; faked in tests.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

type ReportRepository interface {
	Insert(ctx context.Context, report *domain.Report) error
	Recent(ctx context.Context, limit int) ([]domain.Report, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type ReviewRepository interface {
	Insert(ctx context.Context, review *domain.Review) error
	ListByReport(ctx context.Context, reportID string) ([]domain.Review, error)
}

type SnapshotCache interface {
	Get(ctx context.Context) ([]domain.Report, error)
	Set(ctx context.Context, reports []domain.Report, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type StatsRepository interface {
	CountReports(ctx context.Context) (int64, error)
	CountReviews(ctx context.Context) (int64, error)
}

// SessionCounter reports how many sessions are currently connected.
type SessionCounter interface {
	SessionCount() int
}

type Service struct {
	ReportService ReportService
	ReviewService ReviewService
	StatsService  StatsService
}

func NewService(
	reportService ReportService,
	reviewService ReviewService,
	statsService StatsService,
) *Service {
	return &Service{
		ReportService: reportService,
		ReviewService: reviewService,
		StatsService:  statsService,
	}
}
