package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"wdipanel/internal/dataprocessing"
	"wdipanel/pkg/contracts/domain"
)

// LocationColumns is the header of the location metadata artifact. The first
// column joins to the panel's location key.
var LocationColumns = []string{
	dataprocessing.LocationKey, "country_name", "iso2Code",
	"region_id", "region_name", "income_level_id", "income_level",
	"lending_type_id", "lending_type", "capital_city", "longitude", "latitude",
}

// WritePanel writes a panel table with its column names as the header
func (w *CSVWriter) WritePanel(filePath string, panel *dataprocessing.Table) (string, error) {
	if panel == nil {
		return "", errors.New("no panel to write")
	}
	return w.WriteSimpleCSV(filePath, panel.Columns(), tableRecords(panel))
}

// WriteLocations writes location metadata. An empty list writes nothing and
// returns an empty path.
func (w *CSVWriter) WriteLocations(filePath string, locations []domain.Location) (string, error) {
	if len(locations) == 0 {
		w.logger.Warn("no location metadata to write")
		return "", nil
	}
	return w.WriteSimpleCSV(filePath, LocationColumns, locationRecords(locations))
}

func locationRecords(locations []domain.Location) [][]string {
	records := make([][]string, len(locations))
	for i, l := range locations {
		records[i] = []string{
			l.Code, l.Name, l.ISO2Code,
			l.RegionID, l.RegionName, l.IncomeLevelID, l.IncomeLevel,
			l.LendingTypeID, l.LendingType, l.CapitalCity, l.Longitude, l.Latitude,
		}
	}
	return records
}

// ReadPanelFile reads a panel CSV written by WritePanel
func ReadPanelFile(path string) (*dataprocessing.Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read panel: %w", err)
	}
	return ReadPanel(bytes.NewReader(stripBOM(b)))
}

// ReadPanel parses CSV into a table. Numbers parse as numbers, empty cells
// as null, anything else stays text.
func ReadPanel(r io.Reader) (*dataprocessing.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("panel CSV has no header")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	table, err := newTable(header)
	if err != nil {
		return nil, err
	}
	// key columns stay text so "2010" keeps its period-key form
	keyColumns := make([]bool, len(header))
	for i, h := range header {
		keyColumns[i] = h == dataprocessing.LocationKey || h == dataprocessing.PeriodKey
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row := make([]dataprocessing.Value, len(record))
		for i, s := range record {
			if keyColumns[i] {
				row[i] = keyValue(s)
				continue
			}
			row[i] = dataprocessing.ParseValue(s)
		}
		if err := table.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return table, nil
}

func newTable(header []string) (t *dataprocessing.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid header: %v", r)
		}
	}()
	return dataprocessing.NewTable(header...), nil
}

func keyValue(s string) dataprocessing.Value {
	if s == "" {
		return dataprocessing.Null()
	}
	return dataprocessing.Text(s)
}
