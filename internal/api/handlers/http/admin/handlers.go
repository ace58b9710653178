package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"log/slog"

	"quietmap/internal/domain"
	"quietmap/pkg/validator"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type ReportAdmin interface {
	Seed(ctx context.Context, req domain.SeedRequest) (*domain.Report, error)
}

type StatsProvider interface {
	GetStats(ctx context.Context) (*domain.MapStats, error)
}

type Handler struct {
	logger  *slog.Logger
	reports ReportAdmin
	stats   StatsProvider
}

func NewHandler(logger *slog.Logger, reports ReportAdmin, stats StatsProvider) *Handler {
	return &Handler{
		logger:  logger,
		reports: reports,
		stats:   stats,
	}
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// AdminSeed inserts a sample report and broadcasts it to every connected
// session. Body is optional; an empty body seeds the default location.
func (h *Handler) AdminSeed(w http.ResponseWriter, r *http.Request) {
	var req domain.SeedRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil && err != io.EOF {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	report, err := h.reports.Seed(r.Context(), req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.log(r).Info("seed report created", slog.String("report_id", report.ID))
	h.writeJSON(w, http.StatusCreated, report)
}
