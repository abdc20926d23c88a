package http

import (
	"context"

	"wdipanel/internal/dataprocessing"
	"wdipanel/internal/operations"
	"wdipanel/internal/services"
	"wdipanel/pkg/contracts/domain"
)

// PipelineServiceInterface is what the run, panel and metadata handlers need
type PipelineServiceInterface interface {
	Trigger(ctx context.Context, overrides services.RunOverrides) (*operations.RunResult, bool, error)
	LatestSummary(ctx context.Context) (domain.RunSummary, error)
	Runs(ctx context.Context, limit int) ([]domain.RunSummary, error)
	Run(ctx context.Context, id string) (domain.RunSummary, error)
	Diagnostics(ctx context.Context) (domain.DiagnosticsSummary, error)
	Locations(ctx context.Context) []domain.Location
	Panel(q services.PanelQuery) (*dataprocessing.Table, error)
}

// OperationsLister lists runs that are executing right now
type OperationsLister interface {
	ListOperations() []operations.OperationSnapshot
}
