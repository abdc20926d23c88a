// Package exporter writes the run artifacts and reads panels back.
//
// CSVWriter writes the raw and processed panels and the location metadata.
// Numbers use the shortest representation that round-trips and null cells
// are empty. ReadPanel parses a panel CSV back into a table: numbers become
// numeric cells, empty cells become null, and key columns stay text.
//
// WorkbookWriter writes the optional xlsx workbook with raw, processed,
// locations and diagnostics sheets.
package exporter
