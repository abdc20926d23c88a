package exporter

import (
	"bytes"

	"wdipanel/internal/dataprocessing"
)

// formatCell renders a cell for CSV output: numbers use the shortest
// representation that round-trips, null is the empty string
func formatCell(v dataprocessing.Value) string {
	return v.String()
}

// tableRecords renders every row of t as strings
func tableRecords(t *dataprocessing.Table) [][]string {
	records := make([][]string, t.Len())
	for i := range records {
		row := t.Row(i)
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = formatCell(v)
		}
		records[i] = rec
	}
	return records
}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, utf8BOM)
}
