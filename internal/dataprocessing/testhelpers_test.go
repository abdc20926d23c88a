package dataprocessing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wdipanel/pkg/contracts/domain"
)

var (
	gdpSpec  = domain.IndicatorSpec{Code: "NY.GDP.PCAP.KD", Name: "GDP_per_capita"}
	lifeSpec = domain.IndicatorSpec{Code: "SP.DYN.LE00.IN", Name: "life_expectancy"}
	popSpec  = domain.IndicatorSpec{Code: "SP.POP.TOTL", Name: "population"}
)

// cell converts a literal into a Value: nil is null, numbers are numbers, strings are text
func cell(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case int:
		return Number(float64(x))
	case float64:
		return Number(x)
	case string:
		return Text(x)
	default:
		panic("unsupported cell literal")
	}
}

// buildTable creates a table from column names and literal rows
func buildTable(t *testing.T, columns []string, rows ...[]any) *Table {
	t.Helper()
	tbl := NewTable(columns...)
	for _, r := range rows {
		values := make([]Value, len(r))
		for i, v := range r {
			values[i] = cell(v)
		}
		require.NoError(t, tbl.AppendRow(values...))
	}
	return tbl
}

// rawIndicator is a raw source result with the default country/date/value shape
func rawIndicator(t *testing.T, spec domain.IndicatorSpec, rows ...[]any) *Table {
	t.Helper()
	return buildTable(t, []string{RawLocationColumn, RawPeriodColumn, spec.Name}, rows...)
}

// floats reads a column as float pointers; nil marks a null cell
func floats(t *testing.T, tbl *Table, column string) []*float64 {
	t.Helper()
	values, ok := tbl.Column(column)
	require.True(t, ok, "column %s missing", column)
	out := make([]*float64, len(values))
	for i, v := range values {
		if f, ok := v.Float(); ok {
			f := f
			out[i] = &f
		}
	}
	return out
}

func strs(t *testing.T, tbl *Table, column string) []string {
	t.Helper()
	values, ok := tbl.Column(column)
	require.True(t, ok, "column %s missing", column)
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}

func normalizeOK(t *testing.T, spec domain.IndicatorSpec, sel domain.LocationSelector, raw *Table) *Frame {
	t.Helper()
	frame, err := NewNormalizer(NewCollector(domain.MustRegistry(spec)), nil).
		Normalize(context.Background(), spec, sel, raw)
	require.NoError(t, err)
	return frame
}
