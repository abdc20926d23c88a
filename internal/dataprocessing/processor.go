package dataprocessing

// ForwardFillProcessor fills missing panel cells from the previous row
type ForwardFillProcessor struct{}

// NewForwardFillProcessor creates a new forward-fill processor
func NewForwardFillProcessor() *ForwardFillProcessor {
	return &ForwardFillProcessor{}
}

// FillMissingData fills null cells with the last non-null value above them in the
// same column. Rows are walked in the order given, across locations: a location's
// first rows may inherit values from the location sorted before it.
func (f *ForwardFillProcessor) FillMissingData(t *Table) *Table {
	filled, _ := f.FillMissingDataWithStats(t)
	return filled
}

// ForwardFillStatistics represents forward-fill operation statistics
type ForwardFillStatistics struct {
	TotalRows        int
	FilledCells      int
	ColumnsProcessed int
	ColumnsFilled    int
}

// FillMissingDataWithStats performs forward-fill on a copy of t and returns statistics
func (f *ForwardFillProcessor) FillMissingDataWithStats(t *Table) (*Table, ForwardFillStatistics) {
	out := t.Clone()
	stats := ForwardFillStatistics{
		TotalRows:        out.Len(),
		ColumnsProcessed: len(out.columns),
	}

	for c := range out.columns {
		var last Value
		filledHere := 0
		for _, row := range out.rows {
			if row[c].IsNull() {
				if !last.IsNull() {
					row[c] = last
					filledHere++
				}
				continue
			}
			last = row[c]
		}
		if filledHere > 0 {
			stats.ColumnsFilled++
			stats.FilledCells += filledHere
		}
	}

	return out, stats
}
