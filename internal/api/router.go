package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quietmap/internal/api/handlers/http/admin"
	"quietmap/internal/api/handlers/http/system"
	"quietmap/internal/api/handlers/socket"
	"quietmap/internal/config"
	"quietmap/internal/middleware"
	"quietmap/internal/service"
	"quietmap/internal/ws"
)

type Server struct {
	logger *slog.Logger
	router *chi.Mux
	cfg    config.Config
}

// NewServer wires the HTTP surface: health probe, websocket endpoint, admin
// routes and the static frontend. appCtx outlives individual requests and
// scopes every session's handler calls.
func NewServer(appCtx context.Context, cfg *config.Config, logger *slog.Logger, svc *service.Service, hub *ws.Hub) *Server {
	adminHandler := admin.NewHandler(logger, svc.ReportService, svc.StatsService)
	systemHandler := system.NewHandler(logger, cfg.Dedup.BucketDegrees)
	socketHandler := socket.NewHandler(logger, svc.ReportService, svc.ReviewService)

	r := InitRouter(appCtx, cfg, hub, socketHandler, adminHandler, systemHandler, logger)

	return &Server{
		logger: logger,
		router: r,
		cfg:    *cfg,
	}
}

func InitRouter(
	appCtx context.Context,
	cfg *config.Config,
	hub *ws.Hub,
	socketHandler *socket.Handler,
	adminHandler *admin.Handler,
	systemHandler *system.Handler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewMux()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"*"},
	}))

	// The session channel. One upgrade per client; rate-limited per IP so a
	// reconnect loop cannot exhaust the registry.
	r.With(middleware.Limit(5, 10, 5*time.Minute, logger)).
		Get("/ws", ws.ServeWS(appCtx, hub, socketHandler, logger))

	r.Get("/api/health", systemHandler.SystemHealth)
	r.Get("/api/config", systemHandler.ClientConfig)

	r.Route("/api/v1/admin", func(ar chi.Router) {
		ar.Use(middleware.APIKeyMiddleware(cfg.APIKey))
		ar.Use(middleware.Limit(2, 5, 10*time.Minute, logger))

		ar.Get("/stats", adminHandler.AdminStats)
		ar.Post("/seed", adminHandler.AdminSeed)
	})

	// Pre-built frontend with SPA fallback, when a dist dir is configured.
	if cfg.Static.Dir != "" {
		r.Get("/*", spaHandler(cfg.Static.Dir))
	}

	return r
}

// spaHandler serves files from dir, falling back to index.html for client
// routed paths.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, index)
			return
		}
		fs.ServeHTTP(w, r)
	}
}

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}
