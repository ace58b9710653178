package postgres

import (
	"context"
	"log/slog"

	"quietmap/internal/domain"
	"quietmap/pkg/e"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewReviewStore(pool *pgxpool.Pool, logger *slog.Logger) *ReviewStore {
	return &ReviewStore{pool: pool, logger: logger}
}

// Insert stores a review and its tags in one transaction. Tags live in a
// normalized child table, position-ordered, duplicates allowed. The assigned
// id is written back to review.ID.
func (p *ReviewStore) Insert(ctx context.Context, review *domain.Review) error {
	const op = "postgres.Review.Insert"

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		p.logger.Error("begin tx failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}
	defer tx.Rollback(ctx)

	const insertReview = `
		INSERT INTO reviews (report_id, text, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := tx.QueryRow(ctx, insertReview,
		review.ReportID,
		review.Text,
		review.CreatedAt,
	).Scan(&review.ID); err != nil {
		p.logger.Error("insert review failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}

	const insertTag = `
		INSERT INTO review_tags (review_id, position, tag)
		VALUES ($1, $2, $3)
	`

	for i, tag := range review.Tags {
		if _, err := tx.Exec(ctx, insertTag, review.ID, i, tag); err != nil {
			p.logger.Error("insert tag failed",
				slog.String("op", op),
				slog.Int("position", i),
				slog.Any("error", err),
			)
			return e.WrapError(ctx, op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		p.logger.Error("commit failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}

	return nil
}

func (p *ReviewStore) ListByReport(ctx context.Context, reportID string) ([]domain.Review, error) {
	const op = "postgres.Review.ListByReport"

	const query = `
		SELECT r.id,
			   r.report_id,
			   r.text,
			   r.created_at,
			   COALESCE(
				   array_agg(t.tag ORDER BY t.position) FILTER (WHERE t.tag IS NOT NULL),
				   '{}'
			   ) AS tags
		FROM reviews r
		LEFT JOIN review_tags t ON t.review_id = r.id
		WHERE r.report_id = $1
		GROUP BY r.id, r.report_id, r.text, r.created_at
		ORDER BY r.created_at DESC
	`

	rows, err := p.pool.Query(ctx, query, reportID)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(&rev.ID, &rev.ReportID, &rev.Text, &rev.CreatedAt, &rev.Tags); err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		if rev.Tags == nil {
			rev.Tags = []string{}
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return reviews, nil
}
