package system

import (
	"encoding/json"
	"net/http"

	"log/slog"
)

type Handler struct {
	logger        *slog.Logger
	bucketDegrees float64
}

func NewHandler(logger *slog.Logger, bucketDegrees float64) *Handler {
	return &Handler{logger: logger, bucketDegrees: bucketDegrees}
}

func (h *Handler) SystemHealth(w http.ResponseWriter, r *http.Request) {

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Quiet Map backend is running"))
}

// ClientConfig tells map clients which dedup bucket edge this deployment
// runs with, so every client collapses markers on the same grid.
func (h *Handler) ClientConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	resp := map[string]float64{"bucketDegrees": h.bucketDegrees}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("json encode failed", slog.Any("error", err))
	}
}
