package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geoandina/droughtfire/internal/pipeline"
	"github.com/geoandina/droughtfire/internal/raster"
)

// AssessmentService runs per-date assessments and reports readiness.
type AssessmentService interface {
	Assess(ctx context.Context, date time.Time) (*pipeline.DailyStack, error)
	Hotspots(stack *pipeline.DailyStack) *raster.Layer
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and assessment HTTP endpoints.
type Server struct {
	httpServer *http.Server
	service    AssessmentService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /v1/assessments routes.
func NewServer(addr string, service AssessmentService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/assessments/{date}", s.handleAssessment)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(time.DateOnly, r.PathValue("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "date must be formatted YYYY-MM-DD",
		})
		return
	}

	stack, err := s.service.Assess(r.Context(), date)
	if err != nil {
		s.logger.Error("assessment request failed", "date", r.PathValue("date"), "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "assessment failed: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, pipeline.Summarize(stack, s.service.Hotspots(stack)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
