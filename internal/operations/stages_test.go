package operations

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"wdipanel/internal/dataprocessing"
	"wdipanel/internal/shared/testutil"
	"wdipanel/pkg/contracts/domain"
)

func readCSV(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestPipeline_FullRun(t *testing.T) {
	paths := testPaths(t)
	logger, _ := testutil.NewTestLogger(t)
	recorder := &memoryRecorder{}

	fetcher := fixedFetcher(map[string]*dataprocessing.Table{
		gdpSpec.Code: rawTable(t, gdpSpec,
			[]any{"USA", "2011", 110.0},
			[]any{"USA", "2010", 100.0},
			[]any{"DEU", "2010", 80.0},
		),
		lifeSpec.Code: rawTable(t, lifeSpec,
			[]any{"USA", "2010", 78.0},
		),
	})

	m, err := NewPipeline(Dependencies{
		Fetcher:   fetcher,
		Locations: staticLister{{Code: "USA", Name: "United States"}, {Code: "WLD", Name: "World", RegionID: "NA"}},
		Paths:     paths,
		Logger:    logger,
	}, nil, WithRecorder(recorder))
	require.NoError(t, err)
	assert.Equal(t, []string{StepIDLocations, StepIDIndicators, StepIDMerge, StepIDDerive, StepIDExport}, m.GetRegistry().ListIDs())

	req := RunRequest{
		Registry:  domain.MustRegistry(gdpSpec, lifeSpec, popSpec),
		Locations: domain.AllLocations(),
		Period:    domain.PeriodRange{Start: 2010, End: 2011},
		Workbook:  true,
	}
	result, err := m.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusSucceeded, result.Status)
	assert.Equal(t, 3, result.Indicators)
	assert.Equal(t, 2, result.Contributed)
	assert.Equal(t, 3, result.PanelRows)
	require.Len(t, result.Diagnostics.Failures, 1)
	assert.Equal(t, "data was empty for population", result.Diagnostics.Failures[0].Message)
	for _, s := range result.Steps {
		assert.Equal(t, StepStatusCompleted, s.Status, s.ID)
	}
	assert.Len(t, result.Locations, 2)

	assert.Equal(t, []string{
		"country_code,year_str,GDP_per_capita,life_expectancy",
		"DEU,2010,80,",
		"USA,2010,100,78",
		"USA,2011,110,",
	}, readCSV(t, result.Artifacts[ArtifactRaw]))

	assert.Equal(t, []string{
		"country_code,year_str,GDP_per_capita,life_expectancy,year,GDP_per_capita_yoy,life_expectancy_yoy",
		"DEU,2010,80,,2010,,",
		"USA,2010,100,78,2010,,",
		"USA,2011,110,78,2011,10,0",
	}, readCSV(t, result.Artifacts[ArtifactProcessed]))

	assert.Equal(t, paths.LocationsCSV, result.Artifacts[ArtifactLocations])
	assert.Len(t, readCSV(t, paths.LocationsCSV), 3)

	wb, err := excelize.OpenFile(result.Artifacts[ArtifactWorkbook])
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"raw", "processed", "locations", "diagnostics"}, wb.GetSheetList())

	require.Len(t, recorder.records, 1)
	assert.Equal(t, result.RunSummary, recorder.records[0])
}

func TestPipeline_NoDataIsTerminal(t *testing.T) {
	paths := testPaths(t)
	m, err := NewPipeline(Dependencies{
		Fetcher: fixedFetcher(nil),
		Paths:   paths,
	}, nil)
	require.NoError(t, err)

	result, err := m.Execute(context.Background(), RunRequest{
		Registry:  domain.MustRegistry(gdpSpec, lifeSpec),
		Locations: domain.AllLocations(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, dataprocessing.ErrNoData)

	assert.Equal(t, domain.RunStatusFailed, result.Status)
	assert.Len(t, result.Diagnostics.Failures, 2)
	assert.Equal(t, map[string]StepStatus{
		StepIDLocations:  StepStatusSkipped,
		StepIDIndicators: StepStatusCompleted,
		StepIDMerge:      StepStatusFailed,
		StepIDDerive:     StepStatusSkipped,
		StepIDExport:     StepStatusSkipped,
	}, statuses(result))
	assert.Empty(t, result.Artifacts)
	assert.NoFileExists(t, paths.RawPanelCSV)
	assert.Nil(t, result.Panel)
}

func TestPipeline_SingleLocationInjection(t *testing.T) {
	single := dataprocessing.NewTable(dataprocessing.RawPeriodColumn, gdpSpec.Name)
	require.NoError(t, single.AppendRow(dataprocessing.Text("2010"), dataprocessing.Number(100)))
	require.NoError(t, single.AppendRow(dataprocessing.Text("2011"), dataprocessing.Number(150)))

	m, err := NewPipeline(Dependencies{
		Fetcher: fixedFetcher(map[string]*dataprocessing.Table{gdpSpec.Code: single}),
		Paths:   testPaths(t),
	}, nil)
	require.NoError(t, err)

	result, err := m.Execute(context.Background(), RunRequest{
		Registry:  domain.MustRegistry(gdpSpec),
		Locations: domain.SingleLocation("USA"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Panel)
	assert.Equal(t, "USA", result.Panel.Get(0, dataprocessing.LocationKey).String())
	yoy, _ := result.Panel.Get(1, gdpSpec.YoYColumn()).Float()
	assert.InDelta(t, 50.0, yoy, 1e-9)
}

func TestDeriveStep_SkipsWithoutPeriodKey(t *testing.T) {
	state := NewOperationState("run", RunRequest{Registry: domain.MustRegistry(gdpSpec)})
	step := NewDeriveStep(Dependencies{})
	state.AddStep(NewStepState(step.ID(), step.Name()))

	panel := dataprocessing.NewTable(dataprocessing.LocationKey, gdpSpec.Name)
	require.NoError(t, panel.AppendRow(dataprocessing.Text("USA"), dataprocessing.Number(1)))
	state.Data.RawPanel = panel

	err := step.Execute(context.Background(), state)
	require.Error(t, err)
	assert.True(t, IsSkip(err))
	assert.ErrorIs(t, err, dataprocessing.ErrPeriodKeyMissing)
	assert.Nil(t, state.Data.Processed)
}

func TestExportStep_NoProcessedPanel(t *testing.T) {
	paths := testPaths(t)
	logger, handler := testutil.NewTestLogger(t)
	state := NewOperationState("run", RunRequest{Registry: domain.MustRegistry(gdpSpec)})
	step := NewExportStep(Dependencies{Paths: paths, Logger: logger})
	state.AddStep(NewStepState(step.ID(), step.Name()))

	require.NoError(t, step.Execute(context.Background(), state))
	assert.NoFileExists(t, paths.ProcessedPanelCSV)
	assert.NoFileExists(t, paths.LocationsCSV)
	assert.Empty(t, state.Data.Artifacts)
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "processed panel not written")
}

func TestLocationsStep(t *testing.T) {
	tests := []struct {
		name    string
		lister  LocationLister
		skipped bool
	}{
		{name: "no lister", lister: nil, skipped: true},
		{name: "empty listing", lister: staticLister{}, skipped: true},
		{name: "listing", lister: staticLister{{Code: "USA"}, {Code: "EUU", RegionName: "Aggregates"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewOperationState("run", RunRequest{})
			step := NewLocationsStep(Dependencies{Locations: tt.lister})
			state.AddStep(NewStepState(step.ID(), step.Name()))

			err := step.Execute(context.Background(), state)
			if tt.skipped {
				assert.True(t, IsSkip(err))
				assert.Empty(t, state.Data.Locations)
				return
			}
			require.NoError(t, err)
			assert.Len(t, state.Data.Locations, 2)
			assert.Equal(t, 1, state.GetStep(step.ID()).Snapshot().Metadata["aggregates"])
		})
	}
}

func TestDeriveFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.csv")
	out := filepath.Join(dir, "processed.csv")
	require.NoError(t, os.WriteFile(in, []byte("country_code,year_str,GDP_per_capita\nUSA,2000,100\nUSA,2001,110\nUSA,2002,99\n"), 0644))

	result, err := DeriveFile(context.Background(), domain.MustRegistry(gdpSpec), in, out, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, out, result.Output)
	assert.Equal(t, []string{
		"country_code,year_str,GDP_per_capita,year,GDP_per_capita_yoy",
		"USA,2000,100,2000,",
		"USA,2001,110,2001,10",
		"USA,2002,99,2002,-10",
	}, readCSV(t, out))
}

func TestDeriveFile_MissingPeriodKey(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.csv")
	out := filepath.Join(dir, "processed.csv")
	require.NoError(t, os.WriteFile(in, []byte("country_code,GDP_per_capita\nUSA,1\n"), 0644))

	result, err := DeriveFile(context.Background(), domain.MustRegistry(gdpSpec), in, out, nil)
	assert.ErrorIs(t, err, dataprocessing.ErrPeriodKeyMissing)
	require.NotNil(t, result)
	assert.Empty(t, result.Output)
	assert.NoFileExists(t, out)

	_, err = DeriveFile(context.Background(), domain.MustRegistry(gdpSpec), filepath.Join(dir, "missing.csv"), out, nil)
	assert.Error(t, err)
}
