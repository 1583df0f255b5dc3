// Package http serves the prediction API plus the operational endpoints
// (liveness, readiness, Prometheus metrics).
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/coalfire-prediction/internal/adapter/uploads"
	"github.com/couchcryptid/coalfire-prediction/internal/config"
	"github.com/couchcryptid/coalfire-prediction/internal/observability"
	"github.com/couchcryptid/coalfire-prediction/internal/service"
)

// Version reported by /api/health.
const Version = "1.0.0"

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the prediction API and health/readiness/metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	svc        *service.PredictionService
	registry   *uploads.Registry
	metrics    *observability.Metrics
	cfg        *config.Config
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg *config.Config, svc *service.PredictionService, registry *uploads.Registry, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:   logger,
		svc:      svc,
		registry: registry,
		metrics:  metrics,
		cfg:      cfg,
	}

	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /readyz", handleReady(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/model/info", s.handleModelInfo)
	mux.HandleFunc("POST /api/upload/csv", s.handleUpload)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("POST /api/evaluate", s.handleEvaluate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorResponse{
		Error:     errType,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
