// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handler "github.com/newthinker/quantlab/internal/api/handler/api"
	"github.com/newthinker/quantlab/internal/api/job"
	"github.com/newthinker/quantlab/internal/api/middleware"
	"github.com/newthinker/quantlab/internal/api/response"
	"github.com/newthinker/quantlab/internal/app"
	"github.com/newthinker/quantlab/internal/metrics"
)

// Server represents the HTTP server for quantlab
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
	JobTTL      time.Duration
	MaxJobs     int
}

// Dependencies holds the services the routes are built from.
type Dependencies struct {
	App  *app.App
	Jobs *job.Store // optional, created from Config when nil
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, fmt.Errorf("app dependency required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	jobs := deps.Jobs
	if jobs == nil {
		jobs = job.NewStore(cfg.MaxJobs, cfg.JobTTL)
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
		jobs:   jobs,
	}

	// Set up routes
	s.setupRoutes(cfg, deps.App)

	// logging is outermost; it hands a copy of the request down, and both
	// middlewares read the route pattern the mux sets on that copy
	var h http.Handler = mux
	if reg := deps.App.Metrics(); reg != nil {
		h = metrics.HTTPMiddleware(reg)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, a *app.App) {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if reg := a.Metrics(); reg != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	backtests := handler.NewBacktestHandler(s.jobs, a.Backtester(), a.Strategies(), a.Request)
	backtests.SetLogger(s.logger)
	if reg := a.Metrics(); reg != nil {
		backtests.OnActiveChange(reg.SetJobsActive)
	}
	strategies := handler.NewStrategiesHandler(a.Strategies(), a.Config().StrategyParams)
	assets := handler.NewAssetsHandler(a.Config())
	reports := handler.NewReportsHandler(a)

	v1 := http.NewServeMux()
	v1.HandleFunc("GET /api/v1/strategies", strategies.List)
	v1.HandleFunc("GET /api/v1/assets", assets.List)
	v1.HandleFunc("GET /api/v1/assets/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		assets.Get(w, r, r.PathValue("symbol"))
	})
	v1.HandleFunc("POST /api/v1/backtests", backtests.Create)
	v1.HandleFunc("GET /api/v1/backtests", backtests.List)
	v1.HandleFunc("GET /api/v1/backtests/{id}", func(w http.ResponseWriter, r *http.Request) {
		backtests.GetStatus(w, r, r.PathValue("id"))
	})
	v1.HandleFunc("POST /api/v1/reports/daily", reports.Trigger)
	v1.HandleFunc("POST /api/v1/reports/daily/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		reports.Create(w, r, r.PathValue("symbol"))
	})

	s.mux.Handle("/api/v1/", middleware.APIKeyAuth(cfg.APIKey)(v1))
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"active_jobs": s.jobs.Active(),
	})
}
