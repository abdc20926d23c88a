package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"wdipanel/internal/config"
	"wdipanel/internal/infrastructure"
	"wdipanel/internal/operations"
	"wdipanel/internal/services"
	"wdipanel/internal/store"
	httpTransport "wdipanel/internal/transport/http"
	"wdipanel/internal/worldbank"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        chi.Router
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	Pipeline      *operations.Manager
	Source        *worldbank.Client
	Store         *store.Store

	// Request is the run the configuration describes; triggers override parts of it
	Request operations.RunRequest
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Pipeline *services.PipelineService
	Health   *services.HealthService
}

// Option customizes NewApplication
type Option func(*options)

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// WithLogger uses logger instead of the configured global logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSourceHTTPClient sets the HTTP client the World Bank client uses
func WithSourceHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// NewApplication wires every component from cfg. Close releases what it opened.
func NewApplication(ctx context.Context, cfg *config.Config, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	logger := o.logger
	if logger == nil {
		logger, err = infrastructure.InitializeLogger(cfg.Logging, paths.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	paths.LogPathResolution(logger)

	req, err := RunRequestFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	tracer, err := operations.NewOperationTracer(otelProviders)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Request:       req,
	}

	sourceOpts := []worldbank.Option{worldbank.WithLogger(logger)}
	if o.httpClient != nil {
		sourceOpts = append(sourceOpts, worldbank.WithHTTPClient(o.httpClient))
	}
	app.Source = worldbank.NewClient(cfg.Source, sourceOpts...)

	app.Store, err = store.Open(ctx, paths.RunsDatabase, logger)
	if err != nil {
		otelProviders.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	app.Pipeline, err = operations.NewPipeline(operations.Dependencies{
		Fetcher:   app.Source,
		Locations: app.Source,
		Paths:     paths,
		Logger:    logger,
	}, operations.NewConfig(), operations.WithRecorder(app.Store), operations.WithTracer(tracer))
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	app.Services = &ServiceContainer{
		Pipeline: services.NewPipelineService(app.Pipeline, req, logger,
			services.WithHistory(app.Store),
			services.WithLocationLister(app.Source),
			services.WithRunTimeout(cfg.Server.RunTimeout)),
		Health: services.NewHealthService(config.AppVersion, app.Store, app.Pipeline, logger),
	}

	app.setupRouter(tracer)
	app.createServer()

	return app, nil
}

// RunRequestFromConfig builds the configured run
func RunRequestFromConfig(cfg *config.Config) (operations.RunRequest, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return operations.RunRequest{}, fmt.Errorf("invalid indicators: %w", err)
	}
	locations, err := cfg.LocationSelector()
	if err != nil {
		return operations.RunRequest{}, fmt.Errorf("invalid locations: %w", err)
	}
	period, err := cfg.PeriodRange()
	if err != nil {
		return operations.RunRequest{}, fmt.Errorf("invalid period: %w", err)
	}
	return operations.RunRequest{
		Registry:  registry,
		Locations: locations,
		Period:    period,
		SourceID:  cfg.Pipeline.SourceID,
		Workbook:  cfg.Pipeline.Workbook,
	}, nil
}

func (a *Application) setupRouter(tracer *operations.OperationTracer) {
	var metricsHandler http.Handler
	if a.OTelProviders != nil {
		metricsHandler = a.OTelProviders.PrometheusHTTP
	}
	a.Router = httpTransport.NewRouter(httpTransport.RouterConfig{
		Pipeline:        a.Services.Pipeline,
		Health:          a.Services.Health,
		Operations:      a.Pipeline,
		Metrics:         metricsHandler,
		Tracer:          a.OTelProviders.Tracer,
		PipelineMetrics: tracer.Metrics(),
		RunTimeout:      a.Config.Server.RunTimeout,
		Logger:          a.Logger,
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// RunOnce executes one run with optional overrides, outside the HTTP surface
func (a *Application) RunOnce(ctx context.Context, overrides services.RunOverrides) (*operations.RunResult, error) {
	result, _, err := a.Services.Pipeline.Trigger(infrastructure.EnsureTraceID(ctx), overrides)
	return result, err
}

// Serve listens on l until ctx is cancelled, then shuts down gracefully
func (a *Application) Serve(ctx context.Context, l net.Listener) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", l.Addr().String()),
		slog.String("level", a.Config.Logging.Level))

	errCh := make(chan error, 1)
	go func() {
		if err := a.Server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.InfoContext(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Run listens on the configured address until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	defer a.Close(context.Background())
	return a.Serve(ctx, l)
}

// Close releases the run store and flushes telemetry
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close run store: %w", err))
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Error during shutdown")
	} else {
		a.Logger.InfoContext(ctx, "Application shutdown complete")
	}
	if cerr := infrastructure.CloseLogFile(); cerr != nil && err == nil {
		err = fmt.Errorf("close log file: %w", cerr)
	}
	return err
}
