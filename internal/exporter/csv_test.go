package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wdipanel/internal/config"
	"wdipanel/internal/dataprocessing"
	"wdipanel/internal/shared/testutil"
	"wdipanel/pkg/contracts/domain"
)

func setupTestEnv(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	tempDir := t.TempDir()
	logger, _ := testutil.NewTestLogger(t)
	return NewCSVWriter(&config.Paths{DataDir: tempDir}, logger), tempDir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, filePath string)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"country_code", "year_str", "GDP_per_capita"},
				Records: [][]string{
					{"USA", "2010", "100"},
					{"USA", "2011", ""},
				},
			},
			validate: func(t *testing.T, filePath string) {
				assert.Equal(t, []string{
					"country_code,year_str,GDP_per_capita",
					"USA,2010,100",
					"USA,2011,",
				}, readLines(t, filePath))
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"id", "name"},
				Records:   [][]string{{"DEU", "Germany"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(content, utf8BOM))
				assert.Equal(t, "id,name\nDEU,Germany\n", string(content[3:]))
			},
		},
		{
			name:     "quotes fields with commas",
			filePath: "nested/quoted.csv",
			options: WriteOptions{
				Headers: []string{"name"},
				Records: [][]string{{"Korea, Rep."}},
			},
			validate: func(t *testing.T, filePath string) {
				assert.Equal(t, []string{"name", `"Korea, Rep."`}, readLines(t, filePath))
			},
		},
		{
			name:     "empty records",
			filePath: "test_empty.csv",
			options: WriteOptions{
				Headers: []string{"Col1", "Col2"},
				Records: [][]string{},
			},
			validate: func(t *testing.T, filePath string) {
				assert.Equal(t, []string{"Col1,Col2"}, readLines(t, filePath))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(tempDir, tt.filePath), path)
			tt.validate(t, path)
		})
	}
}

func TestCSVWriter_Append(t *testing.T) {
	writer, _ := setupTestEnv(t)

	path, err := writer.WriteSimpleCSV("append.csv", []string{"a", "b"}, [][]string{{"1", "2"}})
	require.NoError(t, err)
	_, err = writer.WriteCSV("append.csv", WriteOptions{
		Headers: []string{"ignored"},
		Records: [][]string{{"3", "4"}},
		Append:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a,b", "1,2", "3,4"}, readLines(t, path))
}

func TestCSVWriter_OverwritesExisting(t *testing.T) {
	writer, _ := setupTestEnv(t)

	_, err := writer.WriteSimpleCSV("over.csv", []string{"a"}, [][]string{{"1"}, {"2"}})
	require.NoError(t, err)
	path, err := writer.WriteSimpleCSV("over.csv", []string{"a"}, [][]string{{"3"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "3"}, readLines(t, path))
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	writer, _ := setupTestEnv(t)
	abs := filepath.Join(t.TempDir(), "abs.csv")

	path, err := writer.WriteSimpleCSV(abs, []string{"a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, abs, path)
	assert.FileExists(t, abs)
}

func TestLocationColumns_JoinOnLocationKey(t *testing.T) {
	assert.Equal(t, []string{
		"country_code", "country_name", "iso2Code",
		"region_id", "region_name", "income_level_id", "income_level",
		"lending_type_id", "lending_type", "capital_city", "longitude", "latitude",
	}, LocationColumns)
	assert.Equal(t, dataprocessing.LocationKey, LocationColumns[0])

	writer, _ := setupTestEnv(t)
	path, err := writer.WriteLocations("country_info.csv", []domain.Location{{Code: "DEU", Name: "Germany"}})
	require.NoError(t, err)

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "country_code,country_name,"))
	assert.True(t, strings.HasPrefix(lines[1], "DEU,Germany,"))
}
