package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"wdipanel/internal/dataprocessing"
	"wdipanel/pkg/contracts/domain"
)

// Workbook sheet names
const (
	SheetRaw         = "raw"
	SheetProcessed   = "processed"
	SheetLocations   = "locations"
	SheetDiagnostics = "diagnostics"
)

// WorkbookContent is everything a run can put in the workbook. Nil tables and
// empty location lists leave their sheet out.
type WorkbookContent struct {
	Raw         *dataprocessing.Table
	Processed   *dataprocessing.Table
	Locations   []domain.Location
	Diagnostics domain.DiagnosticsSummary
}

// WorkbookWriter writes the panel workbook
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger.With(slog.String("component", "workbook_writer"))}
}

// Write creates the workbook at path. The diagnostics sheet is always present.
func (w *WorkbookWriter) Write(path string, content WorkbookContent) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	addSheet := func(name string) error {
		if first {
			first = false
			return f.SetSheetName("Sheet1", name)
		}
		_, err := f.NewSheet(name)
		return err
	}

	if content.Raw != nil {
		if err := addSheet(SheetRaw); err != nil {
			return err
		}
		if err := writeTableSheet(f, SheetRaw, content.Raw); err != nil {
			return err
		}
	}
	if content.Processed != nil {
		if err := addSheet(SheetProcessed); err != nil {
			return err
		}
		if err := writeTableSheet(f, SheetProcessed, content.Processed); err != nil {
			return err
		}
	}
	if len(content.Locations) > 0 {
		if err := addSheet(SheetLocations); err != nil {
			return err
		}
		if err := writeStringSheet(f, SheetLocations, LocationColumns, locationRecords(content.Locations)); err != nil {
			return err
		}
	}

	if err := addSheet(SheetDiagnostics); err != nil {
		return err
	}
	if err := writeStringSheet(f, SheetDiagnostics, []string{"kind", "code", "name", "message"}, diagnosticRecords(content.Diagnostics)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("workbook written",
		slog.String("file_path", path),
		slog.Any("sheets", f.GetSheetList()))
	return nil
}

func diagnosticRecords(s domain.DiagnosticsSummary) [][]string {
	records := make([][]string, 0, len(s.Failures)+len(s.Warnings))
	for _, d := range s.Failures {
		records = append(records, []string{"failure", d.Code, d.Name, d.Message})
	}
	for _, d := range s.Warnings {
		records = append(records, []string{"warning", d.Code, d.Name, d.Message})
	}
	return records
}

// writeTableSheet writes numbers as numeric cells and leaves nulls blank
func writeTableSheet(f *excelize.File, sheet string, t *dataprocessing.Table) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("sheet %s: %w", sheet, err)
	}

	if err := sw.SetRow("A1", headerRow(t.Columns())); err != nil {
		return fmt.Errorf("sheet %s header: %w", sheet, err)
	}
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			if v.IsNull() {
				continue
			}
			if num, ok := v.Float(); ok {
				cells[j] = num
			} else {
				cells[j] = v.String()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
		}
	}
	return sw.Flush()
}

func writeStringSheet(f *excelize.File, sheet string, header []string, records [][]string) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("sheet %s: %w", sheet, err)
	}
	if err := sw.SetRow("A1", headerRow(header)); err != nil {
		return fmt.Errorf("sheet %s header: %w", sheet, err)
	}
	for i, rec := range records {
		cells := make([]interface{}, len(rec))
		for j, s := range rec {
			cells[j] = s
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
		}
	}
	return sw.Flush()
}

func headerRow(columns []string) []interface{} {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return row
}
