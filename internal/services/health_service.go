package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"wdipanel/internal/infrastructure"
	"wdipanel/internal/operations"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     Pinger
	manager   *operations.Manager
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. store and manager may be nil.
func NewHealthService(version string, store Pinger, manager *operations.Manager, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     store,
		manager:   manager,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck reports the process and its dependencies. A store that cannot
// be reached degrades the status; runs still work without history.
func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
		Services: make(map[string]ServiceHealth),
	}

	if s.store != nil {
		if err := s.store.PingContext(ctx); err != nil {
			s.logger.WarnContext(ctx, "run store unreachable", slog.String("error", err.Error()))
			status.Status = "degraded"
			status.Services["store"] = ServiceHealth{Status: "unhealthy", Message: err.Error()}
		} else {
			status.Services["store"] = ServiceHealth{Status: "healthy"}
		}
	}

	if s.manager != nil {
		active := len(s.manager.ListOperations())
		msg := "idle"
		if active > 0 {
			msg = "run in progress"
		}
		status.Services["pipeline"] = ServiceHealth{Status: "healthy", Message: msg}
	}

	return status
}
