package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Merger outer-joins normalized frames into the wide panel
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a merger
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger.With(slog.String("component", "merger"))}
}

// Merge joins frames on (LocationKey, PeriodKey). With no frames it returns
// ErrNoData. A single frame is returned in its own row order; several frames are
// joined left to right and the union of keys is ordered by location, then period.
// Cells an indicator does not supply are null.
func (m *Merger) Merge(ctx context.Context, frames []*Frame) (*Table, error) {
	if len(frames) == 0 {
		m.logger.ErrorContext(ctx, "no valid indicator frames to merge")
		return nil, ErrNoData
	}

	columns := []string{LocationKey, PeriodKey}
	for _, f := range frames {
		name := f.spec.Name
		for _, c := range columns {
			if c == name {
				return nil, fmt.Errorf("indicator column %q supplied twice", name)
			}
		}
		columns = append(columns, name)
	}

	if len(frames) == 1 {
		panel := frames[0].Table()
		m.logger.InfoContext(ctx, "single frame panel",
			slog.Int("rows", panel.Len()),
			slog.Any("columns", panel.Columns()))
		return panel, nil
	}

	rowOf := make(map[Key]int)
	var keys []Key
	var cells [][]Value

	for fi, f := range frames {
		col := 2 + fi
		for i, row := range f.table.rows {
			k := frameKey(f.table, i)
			r, ok := rowOf[k]
			if !ok {
				r = len(keys)
				rowOf[k] = r
				keys = append(keys, k)
				cells = append(cells, make([]Value, len(columns)))
			}
			cells[r][col] = row[2]
		}
	}

	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]].less(keys[order[b]])
	})

	panel := NewTable(columns...)
	panel.rows = make([][]Value, 0, len(keys))
	for _, r := range order {
		row := cells[r]
		row[0] = Text(keys[r].Location)
		row[1] = Text(keys[r].Period)
		panel.rows = append(panel.rows, row)
	}

	m.logger.InfoContext(ctx, "merged indicator frames",
		slog.Int("frames", len(frames)),
		slog.Int("rows", panel.Len()),
		slog.Int("columns", len(columns)))

	return panel, nil
}
