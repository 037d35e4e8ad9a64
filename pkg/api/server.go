// Package api serves the governance engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dailywell/aigov/pkg/accounting"
	"github.com/dailywell/aigov/pkg/budget"
	"github.com/dailywell/aigov/pkg/governor"
	"github.com/dailywell/aigov/pkg/metrics"
)

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// Server is the aigov HTTP API.
type Server struct {
	listen      string
	engine      *governor.Engine
	logger      *zap.Logger
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	metricsPath string
	health      HealthFunc
	router      *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records request metrics on m and serves g at path.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
		s.metricsPath = path
	}
}

// WithHealthCheck makes /healthz report the result of fn.
func WithHealthCheck(fn HealthFunc) Option {
	return func(s *Server) { s.health = fn }
}

// New creates a Server with all routes registered.
func New(listen string, e *governor.Engine, opts ...Option) *Server {
	s := &Server{
		listen: listen,
		engine: e,
		logger: zap.NewNop(),
		router: chi.NewRouter(),
	}
	for _, o := range opts {
		o(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggerMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil && s.metricsPath != "" {
		s.router.Method(http.MethodGet, s.metricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/v1/subjects/{subject}", func(r chi.Router) {
		r.Get("/usage", s.handleUsage)
		r.Post("/admission", s.handleAdmission)
		r.Post("/spend-check", s.handleSpendCheck)
		r.Post("/calls", s.handleRecordCall)
		r.Post("/external-usage", s.handleExternalUsage)
		r.Delete("/reservations/{id}", s.handleReleaseReservation)
		r.Put("/plan", s.handleUpdatePlan)
		r.Get("/reports/monthly", s.handleMonthlyReport)
		r.Get("/interactions", s.handleInteractions)
		r.Get("/routing/stats", s.handleRoutingStats)
		r.Get("/routing/recommendations", s.handleRecommendations)
		r.Post("/reset", s.handleReset)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("aigov api listening", zap.String("addr", s.listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
		s.logger.Debug("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"message": message, "type": "aigov_error", "code": code},
	})
}

// writeEngineError maps engine errors to status codes. Anything that is not
// a caller mistake is treated as a storage outage.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, governor.ErrEmptySubject),
		errors.Is(err, governor.ErrUnknownPlan),
		errors.Is(err, governor.ErrUnknownIntent),
		errors.Is(err, accounting.ErrInvalidUsage):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, budget.ErrUnknownReservation):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("engine error",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSONError(w, http.StatusServiceUnavailable, "usage ledger unavailable")
	}
}
