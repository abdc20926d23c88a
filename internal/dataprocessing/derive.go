package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"wdipanel/pkg/contracts/domain"
)

// Deriver augments a panel with per-location year-over-year change columns
type Deriver struct {
	registry    domain.Registry
	options     ProcessingOptions
	filler      *ForwardFillProcessor
	diagnostics *Collector
	logger      *slog.Logger
}

// NewDeriver creates a deriver for the indicators of registry
func NewDeriver(registry domain.Registry, diagnostics *Collector, logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{
		registry:    registry,
		options:     DefaultOptions(),
		filler:      NewForwardFillProcessor(),
		diagnostics: diagnostics,
		logger:      logger.With(slog.String("component", "deriver")),
	}
}

// WithOptions returns a copy of the deriver using opts
func (d *Deriver) WithOptions(opts ProcessingOptions) *Deriver {
	cp := *d
	cp.options = opts
	return &cp
}

// Process forward-fills the panel, derives the numeric year, orders rows by
// location and year and appends "<indicator>_yoy" columns. The input is not
// modified. Without a period key it returns the filled panel and ErrPeriodKeyMissing.
func (d *Deriver) Process(ctx context.Context, panel *Table) (*Table, error) {
	if panel.IsEmpty() {
		return nil, fmt.Errorf("no panel data to process: %w", ErrNoData)
	}

	t := panel.Clone()
	if d.options.EnableForwardFill {
		var stats ForwardFillStatistics
		t, stats = d.filler.FillMissingDataWithStats(t)
		d.logger.InfoContext(ctx, "forward-filled panel",
			slog.Int("rows", stats.TotalRows),
			slog.Int("filled_cells", stats.FilledCells),
			slog.Int("columns_filled", stats.ColumnsFilled))
	}

	if !t.HasColumn(PeriodKey) {
		d.logger.ErrorContext(ctx, "cannot derive numeric year",
			slog.String("missing_column", PeriodKey),
			slog.Any("columns", t.Columns()))
		return t, ErrPeriodKeyMissing
	}

	years := make([]Value, t.Len())
	bad := make([]bool, t.Len())
	for i := range years {
		year, ok := parseYear(t.Get(i, PeriodKey))
		if !ok {
			bad[i] = true
			continue
		}
		years[i] = Number(float64(year))
	}
	if err := t.SetColumn(YearColumn, years); err != nil {
		return nil, fmt.Errorf("set year column: %w", err)
	}
	if dropped := t.DropRows(func(i int) bool { return bad[i] }); dropped > 0 {
		d.logger.WarnContext(ctx, "dropped rows with non-numeric period",
			slog.Int("dropped", dropped),
			slog.Int("remaining", t.Len()))
	}

	if !t.HasColumn(LocationKey) {
		d.logger.WarnContext(ctx, "cannot compute year-over-year change without a location column",
			slog.String("missing_column", LocationKey))
		return t, nil
	}

	loc := t.ColumnIndex(LocationKey)
	yr := t.ColumnIndex(YearColumn)
	t.SortStable(func(a, b []Value) bool {
		la, lb := a[loc].String(), b[loc].String()
		if la != lb {
			return la < lb
		}
		ya, _ := a[yr].Float()
		yb, _ := b[yr].Float()
		return ya < yb
	})

	derived := 0
	for _, spec := range d.registry.Specs() {
		c := t.ColumnIndex(spec.Name)
		if c < 0 {
			d.logger.DebugContext(ctx, "indicator column absent, skipping change rate",
				slog.String("indicator", spec.Name))
			continue
		}
		if !t.IsNumeric(spec.Name) {
			msg := fmt.Sprintf("column %s is not numeric; year-over-year change skipped", spec.Name)
			d.logger.WarnContext(ctx, "indicator column not numeric",
				slog.String("indicator", spec.Name),
				slog.String("code", spec.Code))
			d.diagnostics.Warn(spec.Code, msg)
			continue
		}

		changes := make([]Value, t.Len())
		for i := 1; i < t.Len(); i++ {
			if t.rows[i][loc].String() != t.rows[i-1][loc].String() {
				continue
			}
			changes[i] = percentChange(t.rows[i-1][c], t.rows[i][c])
		}
		if err := t.SetColumn(spec.YoYColumn(), changes); err != nil {
			return nil, fmt.Errorf("set %s: %w", spec.YoYColumn(), err)
		}
		derived++
	}

	d.logger.InfoContext(ctx, "derived year-over-year change",
		slog.Int("indicators", derived),
		slog.Int("rows", t.Len()))

	return t, nil
}

// percentChange is (cur-prev)/prev*100; null when either side is null or prev is zero
func percentChange(prev, cur Value) Value {
	p, ok := prev.Float()
	if !ok || p == 0 {
		return Null()
	}
	c, ok := cur.Float()
	if !ok {
		return Null()
	}
	return Number((c - p) / p * 100)
}

// maxYear bounds the magnitude of a parseable period key
const maxYear = 1e6

// parseYear converts a period key such as "2015" (or 2015.0) to a year. Keys
// that are not finite or lie outside ±maxYear do not parse.
func parseYear(v Value) (int, bool) {
	f, ok := v.Float()
	if !ok {
		s := strings.TrimSpace(v.String())
		if s == "" {
			return 0, false
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.Abs(f) > maxYear {
		return 0, false
	}
	return int(f), true
}
