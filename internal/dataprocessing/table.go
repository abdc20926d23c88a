package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Column names used throughout the panel and its artifacts
const (
	// RawLocationColumn is the location dimension as the source delivers it
	RawLocationColumn = "country"
	// RawPeriodColumn is the period dimension as the source delivers it
	RawPeriodColumn = "date"
	// LocationKey is the canonical location key column
	LocationKey = "country_code"
	// PeriodKey is the canonical period key column
	PeriodKey = "year_str"
	// YearColumn is the numeric year derived from PeriodKey
	YearColumn = "year"
)

// Kind is the type of a cell value
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
)

// Value is one table cell: no value, a number, or text
type Value struct {
	kind Kind
	num  float64
	text string
}

// Null returns the "no value" cell
func Null() Value { return Value{} }

// Number returns a numeric cell. NaN is treated as no value.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text returns a text cell
func Text(s string) Value { return Value{kind: KindText, text: s} }

// ParseValue reads a serialized cell: empty is null, numbers parse as numbers,
// anything else stays text
func ParseValue(s string) Value {
	if s == "" {
		return Null()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return Text(s)
}

// Kind returns the cell kind
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell holds no value
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric value, if the cell is a number
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the cell for CSV output. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Key is the composite (location, period) row key
type Key struct {
	Location string
	Period   string
}

func (k Key) less(o Key) bool {
	if k.Location != o.Location {
		return k.Location < o.Location
	}
	return k.Period < o.Period
}

// Table is a small row-oriented table with named columns
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// NewTable creates an empty table. Duplicate column names panic.
func NewTable(columns ...string) *Table {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := t.index[c]; dup {
			panic(fmt.Sprintf("dataprocessing: duplicate column %q", c))
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether a column exists
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// ColumnIndex returns the position of a column, or -1
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// IsEmpty reports whether the table is nil or has no rows
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// AppendRow adds a row; the number of values must match the columns
func (t *Table) AppendRow(values ...Value) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.columns))
	}
	row := make([]Value, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// Row returns a copy of row i
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.rows[i]))
	copy(row, t.rows[i])
	return row
}

// Get returns the cell at row i in the named column; missing columns read as null
func (t *Table) Get(i int, column string) Value {
	c := t.ColumnIndex(column)
	if c < 0 {
		return Null()
	}
	return t.rows[i][c]
}

// Column returns a copy of a column's values
func (t *Table) Column(name string) ([]Value, bool) {
	c := t.ColumnIndex(name)
	if c < 0 {
		return nil, false
	}
	out := make([]Value, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[c]
	}
	return out, true
}

// SetColumn replaces a column's values, or appends the column if it is new
func (t *Table) SetColumn(name string, values []Value) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.rows))
	}
	c := t.ColumnIndex(name)
	if c < 0 {
		c = len(t.columns)
		t.index[name] = c
		t.columns = append(t.columns, name)
		for i := range t.rows {
			t.rows[i] = append(t.rows[i], Null())
		}
	}
	for i := range t.rows {
		t.rows[i][c] = values[i]
	}
	return nil
}

// RenameColumn renames a column in place
func (t *Table) RenameColumn(from, to string) error {
	c := t.ColumnIndex(from)
	if c < 0 {
		return fmt.Errorf("column %q not found", from)
	}
	if from == to {
		return nil
	}
	if t.HasColumn(to) {
		return fmt.Errorf("column %q already exists", to)
	}
	delete(t.index, from)
	t.index[to] = c
	t.columns[c] = to
	return nil
}

// Select returns a new table holding only the named columns, in that order
func (t *Table) Select(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, name := range columns {
		c := t.ColumnIndex(name)
		if c < 0 {
			return nil, fmt.Errorf("column %q not found", name)
		}
		idx[i] = c
	}
	out := NewTable(columns...)
	out.rows = make([][]Value, len(t.rows))
	for r, row := range t.rows {
		nr := make([]Value, len(idx))
		for i, c := range idx {
			nr[i] = row[c]
		}
		out.rows[r] = nr
	}
	return out, nil
}

// DropRows removes every row for which drop returns true and reports how many went
func (t *Table) DropRows(drop func(i int) bool) int {
	kept := t.rows[:0]
	removed := 0
	for i, row := range t.rows {
		if drop(i) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	for i := len(kept); i < len(t.rows); i++ {
		t.rows[i] = nil
	}
	t.rows = kept
	return removed
}

// SortStable orders rows with a stable sort
func (t *Table) SortStable(less func(a, b []Value) bool) {
	sort.SliceStable(t.rows, func(i, j int) bool {
		return less(t.rows[i], t.rows[j])
	})
}

// IsNumeric reports whether every non-null cell of the column is a number.
// An all-null column counts as numeric.
func (t *Table) IsNumeric(column string) bool {
	c := t.ColumnIndex(column)
	if c < 0 {
		return false
	}
	for _, row := range t.rows {
		if row[c].kind == KindText {
			return false
		}
	}
	return true
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := NewTable(t.columns...)
	out.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		nr := make([]Value, len(row))
		copy(nr, row)
		out.rows[i] = nr
	}
	return out
}

// Records renders every row as strings, in column order
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rec := make([]string, len(row))
		for c, v := range row {
			rec[c] = v.String()
		}
		out[i] = rec
	}
	return out
}
