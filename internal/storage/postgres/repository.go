package postgres

import (
	"context"

	"quietmap/internal/domain"
)

type ReportRepository interface {
	Insert(ctx context.Context, report *domain.Report) error
	Recent(ctx context.Context, limit int) ([]domain.Report, error)
	// Delete removes a report and its reviews. The bool reports whether a
	// row actually existed; deleting a missing id is not an error.
	Delete(ctx context.Context, id string) (bool, error)
}

type ReviewRepository interface {
	Insert(ctx context.Context, review *domain.Review) error
	ListByReport(ctx context.Context, reportID string) ([]domain.Review, error)
}

type StatsRepository interface {
	CountReports(ctx context.Context) (int64, error)
	CountReviews(ctx context.Context) (int64, error)
}

func (p *Postgres) Reports() ReportRepository { return p.Report }
func (p *Postgres) Reviews() ReviewRepository { return p.Review }
func (p *Postgres) Stats() StatsRepository    { return p.Stat }
