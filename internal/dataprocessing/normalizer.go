package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"wdipanel/pkg/contracts/domain"
)

// Frame is one indicator's data in canonical shape: LocationKey, PeriodKey and a
// single value column named after the indicator. Keys are unique.
type Frame struct {
	spec  domain.IndicatorSpec
	table *Table
}

// Spec returns the indicator the frame carries
func (f *Frame) Spec() domain.IndicatorSpec { return f.spec }

// Len returns the number of rows
func (f *Frame) Len() int { return f.table.Len() }

// Table returns a copy of the frame's rows
func (f *Frame) Table() *Table { return f.table.Clone() }

// Keys returns the row keys in frame order
func (f *Frame) Keys() []Key {
	keys := make([]Key, f.table.Len())
	for i := range keys {
		keys[i] = frameKey(f.table, i)
	}
	return keys
}

func frameKey(t *Table, i int) Key {
	return Key{
		Location: t.rows[i][0].String(),
		Period:   t.rows[i][1].String(),
	}
}

// Normalizer turns raw indicator results into Frames, recording every failure
// and warning in the run's Collector
type Normalizer struct {
	diagnostics *Collector
	logger      *slog.Logger
}

// NewNormalizer creates a normalizer writing to the given collector
func NewNormalizer(diagnostics *Collector, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		diagnostics: diagnostics,
		logger:      logger.With(slog.String("component", "normalizer")),
	}
}

// Normalize converts raw into a Frame. Locations is the selector the raw result was
// fetched with: only a single-location fetch may lack a location column.
// On failure the reason is recorded under the indicator code and returned as an
// *IndicatorError.
func (n *Normalizer) Normalize(ctx context.Context, spec domain.IndicatorSpec, locations domain.LocationSelector, raw *Table) (*Frame, error) {
	frame, err := n.normalize(ctx, spec, locations, raw)
	if err != nil {
		n.logger.ErrorContext(ctx, "indicator rejected",
			slog.String("indicator", spec.Name),
			slog.String("code", spec.Code),
			slog.String("reason", err.Error()))
		n.diagnostics.Record(spec.Code, err.Error())
		return nil, err
	}
	n.logger.InfoContext(ctx, "indicator normalized",
		slog.String("indicator", spec.Name),
		slog.String("code", spec.Code),
		slog.Int("rows", frame.Len()))
	return frame, nil
}

func (n *Normalizer) normalize(ctx context.Context, spec domain.IndicatorSpec, locations domain.LocationSelector, raw *Table) (*Frame, error) {
	if raw.IsEmpty() {
		return nil, indicatorError(spec, ErrEmptyResult, "data was empty for %s", spec.Name)
	}

	work := raw.Clone()

	if !work.HasColumn(RawPeriodColumn) {
		return nil, indicatorError(spec, ErrMissingPeriod,
			"indicator %s is missing the %q column; columns: %v", spec, RawPeriodColumn, work.Columns())
	}

	if work.HasColumn(RawLocationColumn) {
		if err := work.RenameColumn(RawLocationColumn, LocationKey); err != nil {
			return nil, indicatorError(spec, ErrMissingLocation,
				"indicator %s has conflicting location columns: %v", spec, err)
		}
	} else {
		code, single := locations.SingleCode()
		if !single {
			return nil, indicatorError(spec, ErrMissingLocation,
				"indicator %s has no %q column and a %s fetch cannot attribute rows to locations; columns: %v",
				spec, RawLocationColumn, locations.Mode, work.Columns())
		}
		n.logger.InfoContext(ctx, "injecting single location key",
			slog.String("indicator", spec.Name),
			slog.String("location", code))
		fill := make([]Value, work.Len())
		for i := range fill {
			fill[i] = Text(code)
		}
		if err := work.SetColumn(LocationKey, fill); err != nil {
			return nil, indicatorError(spec, ErrMissingLocation, "indicator %s: %v", spec, err)
		}
	}

	if err := work.RenameColumn(RawPeriodColumn, PeriodKey); err != nil {
		return nil, indicatorError(spec, ErrMissingPeriod, "indicator %s: %v", spec, err)
	}

	if !work.HasColumn(spec.Name) {
		var candidates []string
		for _, c := range work.Columns() {
			if c != LocationKey && c != PeriodKey {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) != 1 {
			return nil, indicatorError(spec, ErrAmbiguousValue,
				"value column for %s cannot be unambiguously identified; columns: %v", spec, work.Columns())
		}
		msg := fmt.Sprintf("value column for %s appears to be %q instead of %q; using it", spec, candidates[0], spec.Name)
		n.logger.WarnContext(ctx, "value column reinterpreted",
			slog.String("indicator", spec.Name),
			slog.String("code", spec.Code),
			slog.String("column", candidates[0]))
		n.diagnostics.Warn(spec.Code, msg)
		if err := work.RenameColumn(candidates[0], spec.Name); err != nil {
			return nil, indicatorError(spec, ErrAmbiguousValue, "indicator %s: %v", spec, err)
		}
	}

	table, err := work.Select(LocationKey, PeriodKey, spec.Name)
	if err != nil {
		return nil, indicatorError(spec, ErrAmbiguousValue, "indicator %s: %v", spec, err)
	}

	seen := make(map[Key]bool, table.Len())
	for i, row := range table.rows {
		row[0] = Text(row[0].String())
		row[1] = Text(row[1].String())
		k := frameKey(table, i)
		if seen[k] {
			return nil, indicatorError(spec, ErrDuplicateKey,
				"indicator %s has more than one row for location %q, period %q", spec, k.Location, k.Period)
		}
		seen[k] = true
	}

	return &Frame{spec: spec, table: table}, nil
}

func indicatorError(spec domain.IndicatorSpec, kind error, format string, args ...any) *IndicatorError {
	return &IndicatorError{
		Code:   spec.Code,
		Kind:   kind,
		Reason: fmt.Sprintf(format, args...),
	}
}
