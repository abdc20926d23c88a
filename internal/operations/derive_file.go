package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wdipanel/internal/dataprocessing"
	"wdipanel/internal/exporter"
	"wdipanel/pkg/contracts/domain"
)

// DeriveResult is the outcome of deriving a panel read from disk
type DeriveResult struct {
	Rows        int                       `json:"rows"`
	Columns     []string                  `json:"columns"`
	Output      string                    `json:"output,omitempty"`
	Diagnostics domain.DiagnosticsSummary `json:"diagnostics"`
}

// DeriveFile reads a raw panel CSV, derives year-over-year change and writes
// the processed panel to out. A panel without a period key yields
// dataprocessing.ErrPeriodKeyMissing and no output file.
func DeriveFile(ctx context.Context, registry domain.Registry, in, out string, logger *slog.Logger) (*DeriveResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	panel, err := exporter.ReadPanelFile(in)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "raw panel loaded",
		slog.String("file_path", in),
		slog.Int("rows", panel.Len()),
		slog.Any("columns", panel.Columns()))

	collector := dataprocessing.NewCollector(registry)
	processed, err := dataprocessing.NewDeriver(registry, collector, logger).Process(ctx, panel)
	if err != nil {
		if errors.Is(err, dataprocessing.ErrPeriodKeyMissing) {
			return &DeriveResult{
				Rows:        processed.Len(),
				Columns:     processed.Columns(),
				Diagnostics: collector.Summary(),
			}, err
		}
		return nil, fmt.Errorf("derive %s: %w", in, err)
	}

	path, err := exporter.NewCSVWriter(nil, logger).WritePanel(out, processed)
	if err != nil {
		return nil, fmt.Errorf("write processed panel: %w", err)
	}

	return &DeriveResult{
		Rows:        processed.Len(),
		Columns:     processed.Columns(),
		Output:      path,
		Diagnostics: collector.Summary(),
	}, nil
}
