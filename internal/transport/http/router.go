package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/trace"

	apperrors "wdipanel/internal/errors"
	"wdipanel/internal/infrastructure"
	customMiddleware "wdipanel/internal/middleware"
	"wdipanel/internal/services"
)

// RouterConfig is everything the router wires together. Health, Metrics,
// Operations, Tracer and PipelineMetrics may be nil.
type RouterConfig struct {
	Pipeline        PipelineServiceInterface
	Health          *services.HealthService
	Operations      OperationsLister
	Metrics         http.Handler
	Tracer          trace.Tracer
	PipelineMetrics *infrastructure.PipelineMetrics
	RequestTimeout  time.Duration
	RunTimeout      time.Duration
	Logger          *slog.Logger
}

// NewRouter builds the chi router with the middleware chain and every route
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}

	errorHandler := apperrors.NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(cfg.Tracer, cfg.PipelineMetrics).Handler)
	r.Use(apperrors.NewErrorMiddleware(errorHandler, logger).Handler)
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	if cfg.Health != nil {
		r.Get("/healthz", NewHealthHandler(cfg.Health, logger).HealthCheck)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	runs := NewRunsHandler(cfg.Pipeline, logger, errorHandler)
	panel := NewPanelHandler(cfg.Pipeline, cfg.Operations, logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(requestTimeout, logger))
			r.Get("/runs", runs.ListRuns)
			r.Get("/runs/latest", runs.LatestRun)
			r.Get("/runs/{id}", runs.GetRun)
			r.Get("/panel", panel.GetPanel)
			r.Get("/diagnostics", panel.GetDiagnostics)
			r.Get("/locations", panel.GetLocations)
			r.Get("/operations", panel.ListOperations)
		})

		// triggering waits for the run, which is bounded by the run timeout
		r.Group(func(r chi.Router) {
			if cfg.RunTimeout > 0 {
				r.Use(customMiddleware.Timeout(cfg.RunTimeout, logger))
			}
			r.Post("/runs", runs.TriggerRun)
		})
	})

	return r
}
