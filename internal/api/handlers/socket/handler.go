// Package socket dispatches named session-channel events to the services.
// Every failure is contained here: logged, possibly answered with a
// rejection event to the offending session, never allowed to touch another
// session's channel.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"quietmap/internal/domain"
	"quietmap/internal/ws"
	"quietmap/pkg/e"
)

type Handler struct {
	logger  *slog.Logger
	reports ReportService
	reviews ReviewService
}

// The service surface this handler needs; satisfied by internal/service.
type ReportService interface {
	Snapshot(ctx context.Context) ([]domain.Report, error)
	Submit(ctx context.Context, req domain.SubmitReportRequest) (*domain.Report, error)
	Delete(ctx context.Context, id string) error
}

type ReviewService interface {
	Submit(ctx context.Context, req domain.SubmitReviewRequest) error
	List(ctx context.Context, reportID string) []domain.Review
}

func NewHandler(logger *slog.Logger, reports ReportService, reviews ReviewService) *Handler {
	return &Handler{
		logger:  logger,
		reports: reports,
		reviews: reviews,
	}
}

// OnConnect replays the recent-reports snapshot to the joining session only.
// On a read failure the session simply starts from the live stream, exactly
// like a client that connected before any reports existed.
func (h *Handler) OnConnect(ctx context.Context, s *ws.Session) {
	reports, err := h.reports.Snapshot(ctx)
	if err != nil {
		h.logger.Error("snapshot fetch failed",
			slog.String("session_id", s.ID),
			slog.Any("error", err),
		)
		return
	}
	s.Send(ws.EventInitialData, reports)
}

func (h *Handler) OnEvent(ctx context.Context, s *ws.Session, ev ws.Event) {
	switch ev.Name {
	case ws.EventSubmitReport:
		h.handleSubmitReport(ctx, s, ev.Payload)
	case ws.EventDeleteMarker:
		h.handleDeleteMarker(ctx, s, ev.Payload)
	case ws.EventSubmitReview:
		h.handleSubmitReview(ctx, s, ev.Payload)
	case ws.EventGetReviews:
		h.handleGetReviews(ctx, s, ev.Payload)
	default:
		h.logger.Warn("unknown event",
			slog.String("session_id", s.ID),
			slog.String("event", ev.Name),
		)
	}
}

func (h *Handler) OnDisconnect(s *ws.Session) {
	h.logger.Info("session disconnected", slog.String("session_id", s.ID))
}

func (h *Handler) handleSubmitReport(ctx context.Context, s *ws.Session, payload json.RawMessage) {
	var req domain.SubmitReportRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.reject(s, ws.EventSubmitReport, "malformed payload")
		return
	}

	if _, err := h.reports.Submit(ctx, req); err != nil {
		switch {
		case errors.Is(err, e.ErrInvalidLevel):
			h.reject(s, ws.EventSubmitReport, "level must be numeric")
		case errors.Is(err, e.ErrInvalidCoordinates):
			h.reject(s, ws.EventSubmitReport, "coordinates are required")
		default:
			// Persistence failure: logged by the service, nothing goes out.
			h.logger.Error("submit failed",
				slog.String("session_id", s.ID),
				slog.Any("error", err),
			)
		}
	}
}

func (h *Handler) handleDeleteMarker(ctx context.Context, s *ws.Session, payload json.RawMessage) {
	id, ok := decodeID(payload)
	if !ok {
		h.reject(s, ws.EventDeleteMarker, "malformed id")
		return
	}

	if err := h.reports.Delete(ctx, id); err != nil {
		h.logger.Error("delete failed",
			slog.String("session_id", s.ID),
			slog.String("report_id", id),
			slog.Any("error", err),
		)
	}
}

func (h *Handler) handleSubmitReview(ctx context.Context, s *ws.Session, payload json.RawMessage) {
	var req domain.SubmitReviewRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.reject(s, ws.EventSubmitReview, "malformed payload")
		return
	}

	if err := h.reviews.Submit(ctx, req); err != nil {
		switch {
		case errors.Is(err, e.ErrInvalidInput), errors.Is(err, e.ErrEmptyReview):
			h.reject(s, ws.EventSubmitReview, "review needs a report id and text or tags")
		default:
			h.logger.Error("review submit failed",
				slog.String("session_id", s.ID),
				slog.Any("error", err),
			)
		}
	}
}

func (h *Handler) handleGetReviews(ctx context.Context, s *ws.Session, payload json.RawMessage) {
	id, ok := decodeID(payload)
	if !ok {
		s.Send(ws.EventReviewsData, []domain.Review{})
		return
	}
	s.Send(ws.EventReviewsData, h.reviews.List(ctx, id))
}

func (h *Handler) reject(s *ws.Session, event, reason string) {
	h.logger.Warn("submission rejected",
		slog.String("session_id", s.ID),
		slog.String("event", event),
		slog.String("reason", reason),
	)
	s.Send(ws.EventSubmitRejected, ws.Rejection{Event: event, Reason: reason})
}

// decodeID accepts a JSON string or number. Pre-UUID clients identify
// reports by their millisecond timestamp, which arrives as a number.
func decodeID(payload json.RawMessage) (string, bool) {
	var asString string
	if err := json.Unmarshal(payload, &asString); err == nil && asString != "" {
		return asString, true
	}

	var asNumber int64
	if err := json.Unmarshal(payload, &asNumber); err == nil {
		return strconv.FormatInt(asNumber, 10), true
	}

	return "", false
}
