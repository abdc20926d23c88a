package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"wdipanel/pkg/contracts/domain"
)

// FetchRequest is what every indicator fetch in a run shares
type FetchRequest struct {
	Locations domain.LocationSelector
	Period    domain.PeriodRange
	SourceID  int
}

// Fetcher retrieves one indicator's raw rows. An empty or nil table means the
// source had no data; an error means the fetch itself failed.
type Fetcher interface {
	Fetch(ctx context.Context, spec domain.IndicatorSpec, req FetchRequest) (*Table, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, spec domain.IndicatorSpec, req FetchRequest) (*Table, error)

// Fetch implements Fetcher
func (f FetcherFunc) Fetch(ctx context.Context, spec domain.IndicatorSpec, req FetchRequest) (*Table, error) {
	return f(ctx, spec, req)
}

// Gatherer fetches and normalizes every registry indicator in order. A failing
// indicator is diagnosed and skipped; it never stops the others.
type Gatherer struct {
	fetcher     Fetcher
	normalizer  *Normalizer
	diagnostics *Collector
	logger      *slog.Logger
}

// NewGatherer wires a fetcher to a normalizer sharing one collector
func NewGatherer(fetcher Fetcher, diagnostics *Collector, logger *slog.Logger) *Gatherer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gatherer{
		fetcher:     fetcher,
		normalizer:  NewNormalizer(diagnostics, logger),
		diagnostics: diagnostics,
		logger:      logger.With(slog.String("component", "gatherer")),
	}
}

// Gather returns the valid frames in registry order
func (g *Gatherer) Gather(ctx context.Context, registry domain.Registry, req FetchRequest) []*Frame {
	var frames []*Frame

	for i, spec := range registry.Specs() {
		g.logger.InfoContext(ctx, "fetching indicator",
			slog.String("indicator", spec.Name),
			slog.String("code", spec.Code),
			slog.String("locations", req.Locations.String()),
			slog.String("period", req.Period.Query()),
			slog.Int("source", req.SourceID),
			slog.String("progress", fmt.Sprintf("%d/%d", i+1, registry.Len())))

		raw, err := g.fetch(ctx, spec, req)
		if err != nil {
			reason := fmt.Sprintf("error fetching %s: %v", spec, err)
			g.logger.ErrorContext(ctx, "indicator fetch failed",
				slog.String("indicator", spec.Name),
				slog.String("code", spec.Code),
				slog.String("error", err.Error()))
			g.diagnostics.Record(spec.Code, reason)
			continue
		}

		frame, err := g.normalizer.Normalize(ctx, spec, req.Locations, raw)
		if err != nil {
			continue
		}
		frames = append(frames, frame)
	}

	if g.diagnostics.Len() > 0 {
		summary := g.diagnostics.Summary()
		g.logger.WarnContext(ctx, "some indicators did not contribute",
			slog.Int("failed", len(summary.Failures)),
			slog.Int("contributed", len(frames)))
		for _, d := range summary.Failures {
			g.logger.WarnContext(ctx, "indicator diagnostic",
				slog.String("indicator", d.Name),
				slog.String("code", d.Code),
				slog.String("reason", d.Message))
		}
	}

	return frames
}

// fetch isolates a single fetch, turning a panic in the adapter into an error
func (g *Gatherer) fetch(ctx context.Context, spec domain.IndicatorSpec, req FetchRequest) (raw *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = &IndicatorError{
				Code:   spec.Code,
				Kind:   ErrFetchFailed,
				Reason: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	raw, err = g.fetcher.Fetch(ctx, spec, req)
	if err != nil {
		return nil, &IndicatorError{
			Code:   spec.Code,
			Kind:   ErrFetchFailed,
			Reason: err.Error(),
			Cause:  err,
		}
	}
	return raw, nil
}
