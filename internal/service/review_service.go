package service

import (
	"context"
	"log/slog"

	"quietmap/internal/domain"
	"quietmap/internal/ws"
	"quietmap/pkg/e"
)

type reviewService struct {
	repo        ReviewRepository
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewReviewService(repo ReviewRepository, broadcaster Broadcaster, logger *slog.Logger) ReviewService {
	return &reviewService{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Submit persists the review and echoes the inbound payload verbatim as
// new_review to every session.
//
// The parent report's existence is deliberately not checked: a review racing
// a concurrent deletion is stored as an orphan. Accepted data-quality gap,
// pending a product decision.
func (s *reviewService) Submit(ctx context.Context, req domain.SubmitReviewRequest) error {
	if req.ReportID == "" {
		return e.ErrInvalidInput
	}
	if !req.HasContent() {
		return e.ErrEmptyReview
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	review := &domain.Review{
		ReportID:  req.ReportID,
		Text:      req.Text,
		Tags:      tags,
		CreatedAt: req.Timestamp,
	}

	if err := s.repo.Insert(ctx, review); err != nil {
		s.logger.Error("review insert failed",
			slog.String("report_id", req.ReportID),
			slog.Any("error", err),
		)
		return err
	}

	s.broadcaster.Broadcast(ws.EventNewReview, req)

	s.logger.Info("review stored",
		slog.Int64("review_id", review.ID),
		slog.String("report_id", review.ReportID),
		slog.Int("tags", len(review.Tags)),
	)
	return nil
}

// List fetches a report's reviews newest first. Callers always get a usable
// slice: a read failure is logged and comes back empty, same as "no reviews".
func (s *reviewService) List(ctx context.Context, reportID string) []domain.Review {
	reviews, err := s.repo.ListByReport(ctx, reportID)
	if err != nil {
		s.logger.Error("review list failed",
			slog.String("report_id", reportID),
			slog.Any("error", err),
		)
		return []domain.Review{}
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews
}
