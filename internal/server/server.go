// internal/server/server.go

// Package server exposes the funnel over HTTP: headline assignment, the
// step-by-step capture session API, conversion beacons, sequence previews,
// and a token-protected testing dashboard.
package server

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lead-funnel/internal/abtest"
	"lead-funnel/internal/analytics"
	"lead-funnel/internal/common/config"
	stderrors "lead-funnel/internal/common/errors"
	"lead-funnel/internal/common/logger"
	"lead-funnel/internal/funnel"
)

// Server wires the funnel services onto an http.ServeMux.
type Server struct {
	cfg       config.ServerConfig
	host      *funnel.Host
	ab        *abtest.Service
	memory    *analytics.MemorySink
	logger    logger.Logger
	errs      *stderrors.ErrorHandler
	router    *http.ServeMux
	startTime time.Time

	httpServer *http.Server
}

// Options toggles the optional surfaces.
type Options struct {
	// Memory is the in-process event queue backing the dashboard report.
	// Nil disables the dashboard report endpoint.
	Memory *analytics.MemorySink
	// EnablePprof mounts net/http/pprof under /debug/pprof/.
	EnablePprof bool
}

func New(cfg config.ServerConfig, host *funnel.Host, ab *abtest.Service, log logger.Logger, opts Options) *Server {
	srv := &Server{
		cfg:       cfg,
		host:      host,
		ab:        ab,
		memory:    opts.Memory,
		logger:    log.WithFields(map[string]interface{}{"component": "server"}),
		errs:      stderrors.NewErrorHandler(log.WithFields(map[string]interface{}{"component": "server"})),
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	srv.setupRoutes(opts)
	return srv
}

func (s *Server) setupRoutes(opts Options) {
	// Public endpoints
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.Handle("GET /metrics", promhttp.Handler())

	s.router.HandleFunc("GET /api/headline", s.handleHeadline)
	s.router.HandleFunc("POST /api/convert", s.handleConvert)
	s.router.HandleFunc("GET /api/sequences", s.handleSequences)

	// Capture session lifecycle
	s.router.HandleFunc("POST /api/sessions", s.handleStartSession)
	s.router.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("POST /api/sessions/{id}/email", s.handleSubmitEmail)
	s.router.HandleFunc("POST /api/sessions/{id}/phone", s.handleSubmitPhone)
	s.router.HandleFunc("POST /api/sessions/{id}/user-type", s.handleSelectUserType)
	s.router.HandleFunc("POST /api/sessions/{id}/platforms/toggle", s.handleTogglePlatform)
	s.router.HandleFunc("POST /api/sessions/{id}/platforms", s.handleSubmitPlatforms)
	s.router.HandleFunc("POST /api/sessions/{id}/details", s.handleUpdateDetails)
	s.router.HandleFunc("POST /api/sessions/{id}/details/submit", s.handleSubmitDetails)
	s.router.HandleFunc("POST /api/sessions/{id}/back", s.handleBack)
	s.router.HandleFunc("POST /api/sessions/{id}/onboarding", s.handleViewOnboarding)
	s.router.HandleFunc("POST /api/sessions/{id}/home", s.handleReturnHome)

	// Dashboard endpoints (protected)
	s.router.Handle("GET /dashboard/api/report", s.authMiddleware(http.HandlerFunc(s.handleDashboardReport)))
	s.router.Handle("GET /dashboard/api/events", s.authMiddleware(http.HandlerFunc(s.handleDashboardEvents)))
	s.router.Handle("GET /dashboard/api/sessions/{id}", s.authMiddleware(http.HandlerFunc(s.handleDashboardSession)))

	if opts.EnablePprof {
		s.router.HandleFunc("GET /debug/pprof/", pprof.Index)
		s.router.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
		s.router.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
		s.router.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	}
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Millisecond,
	}

	s.logger.Info("http server listening", map[string]interface{}{
		"address": s.cfg.Address,
	})
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
