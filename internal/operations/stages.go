package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wdipanel/internal/config"
	"wdipanel/internal/dataprocessing"
	"wdipanel/internal/exporter"
	"wdipanel/pkg/contracts/domain"
)

// LocationLister lists the locations the indicator source knows
type LocationLister interface {
	ListLocations(ctx context.Context) []domain.Location
}

// Dependencies are the collaborators the pipeline steps use
type Dependencies struct {
	Fetcher   dataprocessing.Fetcher
	Locations LocationLister
	Paths     *config.Paths
	Logger    *slog.Logger
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// LocationsStep collects location metadata. Missing metadata never stops a run.
type LocationsStep struct {
	BaseStage
	lister LocationLister
	logger *slog.Logger
}

// NewLocationsStep creates the location metadata step
func NewLocationsStep(deps Dependencies) *LocationsStep {
	return &LocationsStep{
		BaseStage: NewBaseStage(StepIDLocations, StepNameLocations),
		lister:    deps.Locations,
		logger:    deps.logger().With(slog.String("step", StepIDLocations)),
	}
}

// Execute implements Step
func (s *LocationsStep) Execute(ctx context.Context, state *OperationState) error {
	if s.lister == nil {
		return Skip("no location source configured", nil)
	}

	locations := s.lister.ListLocations(ctx)
	if len(locations) == 0 {
		return Skip("no location metadata available", nil)
	}

	aggregates := 0
	for _, l := range locations {
		if l.IsAggregate() {
			aggregates++
		}
	}
	state.Data.Locations = locations

	step := state.GetStep(s.ID())
	step.SetMetadata("locations", len(locations))
	step.SetMetadata("aggregates", aggregates)
	s.logger.InfoContext(ctx, "location metadata collected",
		slog.Int("locations", len(locations)),
		slog.Int("aggregates", aggregates))
	return nil
}

// IndicatorsStep fetches and normalizes every indicator of the registry
type IndicatorsStep struct {
	BaseStage
	fetcher dataprocessing.Fetcher
	logger  *slog.Logger
}

// NewIndicatorsStep creates the indicator collection step
func NewIndicatorsStep(deps Dependencies) *IndicatorsStep {
	return &IndicatorsStep{
		BaseStage: NewBaseStage(StepIDIndicators, StepNameIndicators),
		fetcher:   deps.Fetcher,
		logger:    deps.logger(),
	}
}

// Execute implements Step. Per-indicator failures are diagnostics, not errors.
func (s *IndicatorsStep) Execute(ctx context.Context, state *OperationState) error {
	if s.fetcher == nil {
		return NewValidationError(s.ID(), "no indicator fetcher configured")
	}

	data := state.Data
	gatherer := dataprocessing.NewGatherer(s.fetcher, data.Diagnostics, s.logger)
	data.Frames = gatherer.Gather(ctx, data.Request.Registry, data.Request.FetchRequest())

	step := state.GetStep(s.ID())
	step.SetMetadata("requested", data.Request.Registry.Len())
	step.SetMetadata("contributed", len(data.Frames))
	step.SetMetadata("failed", data.Diagnostics.Len())
	return ctx.Err()
}

// MergeStep joins the frames into the raw panel and writes it out
type MergeStep struct {
	BaseStage
	writer *exporter.CSVWriter
	paths  *config.Paths
	logger *slog.Logger
}

// NewMergeStep creates the merge step
func NewMergeStep(deps Dependencies) *MergeStep {
	return &MergeStep{
		BaseStage: NewBaseStage(StepIDMerge, StepNameMerge),
		writer:    exporter.NewCSVWriter(deps.Paths, deps.logger()),
		paths:     deps.Paths,
		logger:    deps.logger(),
	}
}

// Execute implements Step. No contributing indicator is terminal.
func (s *MergeStep) Execute(ctx context.Context, state *OperationState) error {
	data := state.Data
	panel, err := dataprocessing.NewMerger(s.logger).Merge(ctx, data.Frames)
	if err != nil {
		if errors.Is(err, dataprocessing.ErrNoData) {
			return NewFatalError("no indicator produced data", err)
		}
		return err
	}
	data.RawPanel = panel

	step := state.GetStep(s.ID())
	step.SetMetadata("rows", panel.Len())
	step.SetMetadata("columns", len(panel.Columns()))

	if s.paths == nil {
		return nil
	}
	path, err := s.writer.WritePanel(s.paths.RawPanelCSV, panel)
	if err != nil {
		return fmt.Errorf("write raw panel: %w", err)
	}
	data.Artifacts[ArtifactRaw] = path
	return nil
}

// DeriveStep adds the numeric year and year-over-year change columns
type DeriveStep struct {
	BaseStage
	logger *slog.Logger
}

// NewDeriveStep creates the derivation step
func NewDeriveStep(deps Dependencies) *DeriveStep {
	return &DeriveStep{
		BaseStage: NewBaseStage(StepIDDerive, StepNameDerive),
		logger:    deps.logger(),
	}
}

// Execute implements Step. A panel without a period key skips the step and
// leaves no processed panel.
func (s *DeriveStep) Execute(ctx context.Context, state *OperationState) error {
	data := state.Data
	if data.RawPanel == nil {
		return NewValidationError(s.ID(), "no merged panel")
	}

	deriver := dataprocessing.NewDeriver(data.Request.Registry, data.Diagnostics, s.logger)
	processed, err := deriver.Process(ctx, data.RawPanel)
	if errors.Is(err, dataprocessing.ErrPeriodKeyMissing) {
		return Skip("panel has no period key; derivation skipped", err)
	}
	if err != nil {
		return err
	}
	data.Processed = processed

	state.GetStep(s.ID()).SetMetadata("rows", processed.Len())
	return nil
}

// ExportStep writes the processed panel, location metadata and workbook
type ExportStep struct {
	BaseStage
	writer   *exporter.CSVWriter
	workbook *exporter.WorkbookWriter
	paths    *config.Paths
	logger   *slog.Logger
}

// NewExportStep creates the export step
func NewExportStep(deps Dependencies) *ExportStep {
	return &ExportStep{
		BaseStage: NewBaseStage(StepIDExport, StepNameExport),
		writer:    exporter.NewCSVWriter(deps.Paths, deps.logger()),
		workbook:  exporter.NewWorkbookWriter(deps.logger()),
		paths:     deps.Paths,
		logger:    deps.logger(),
	}
}

// Execute implements Step
func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	if s.paths == nil {
		return Skip("no output paths configured", nil)
	}
	data := state.Data

	if data.Processed != nil {
		path, err := s.writer.WritePanel(s.paths.ProcessedPanelCSV, data.Processed)
		if err != nil {
			return fmt.Errorf("write processed panel: %w", err)
		}
		data.Artifacts[ArtifactProcessed] = path
	} else {
		s.logger.WarnContext(ctx, "processed panel not written",
			slog.String("reason", "derivation did not produce a panel"))
	}

	if len(data.Locations) > 0 {
		path, err := s.writer.WriteLocations(s.paths.LocationsCSV, data.Locations)
		if err != nil {
			return fmt.Errorf("write location metadata: %w", err)
		}
		data.Artifacts[ArtifactLocations] = path
	}

	if data.Request.Workbook {
		err := s.workbook.Write(s.paths.WorkbookXLSX, exporter.WorkbookContent{
			Raw:         data.RawPanel,
			Processed:   data.Processed,
			Locations:   data.Locations,
			Diagnostics: data.Diagnostics.Summary(),
		})
		if err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		data.Artifacts[ArtifactWorkbook] = s.paths.WorkbookXLSX
	}

	state.GetStep(s.ID()).SetMetadata("artifacts", len(data.Artifacts))
	return nil
}

// NewPipeline registers the five run steps in order and returns their manager
func NewPipeline(deps Dependencies, cfg *Config, opts ...ManagerOption) (*Manager, error) {
	registry := NewRegistry()
	for _, step := range []Step{
		NewLocationsStep(deps),
		NewIndicatorsStep(deps),
		NewMergeStep(deps),
		NewDeriveStep(deps),
		NewExportStep(deps),
	} {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	if deps.Logger != nil {
		opts = append([]ManagerOption{WithManagerLogger(deps.Logger)}, opts...)
	}
	return NewManager(registry, cfg, opts...), nil
}
