package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wdipanel/internal/dataprocessing"
	"wdipanel/internal/operations"
	"wdipanel/internal/shared/testutil"
	"wdipanel/pkg/contracts/domain"
)

// setupEnv points the configuration at a fake source and a scratch directory
func setupEnv(t *testing.T) (baseDir string) {
	t.Helper()
	wb := testutil.NewWorldBankServer(t, nil)
	baseDir = t.TempDir()
	t.Setenv("WDI_SOURCE_BASE_URL", wb.BaseURL())
	t.Setenv("WDI_SOURCE_RATE_LIMIT", "1000")
	t.Setenv("WDI_PATHS_BASE_DIR", baseDir)
	t.Setenv("WDI_TELEMETRY_METRICS_ENABLED", "false")
	t.Setenv("WDI_CONFIG_FILE", "")
	return baseDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	baseDir := setupEnv(t)

	out, err := execute(t, "run", "--locations", "USA", "--start", "2010-01-01", "--end", "2012-12-31")
	require.NoError(t, err)

	var summary domain.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, domain.RunStatusSucceeded, summary.Status)
	assert.Equal(t, 2, summary.Contributed)
	assert.Equal(t, 3, summary.PanelRows)
	assert.Equal(t, domain.PeriodRange{Start: 2010, End: 2012}, summary.Period)
	assert.Len(t, summary.Diagnostics.Failures, len(domain.DefaultIndicators())-2)

	assert.FileExists(t, filepath.Join(baseDir, "data", "processed", "world_bank_processed.csv"))
	assert.NoFileExists(t, filepath.Join(baseDir, "data", "processed", "world_bank_panel.xlsx"))
}

func TestRunCommand_BadDate(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "run", "--start", "2010/01/01")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}

func TestDeriveCommand(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.csv")
	out := filepath.Join(dir, "processed.csv")
	require.NoError(t, os.WriteFile(in, []byte(
		"country_code,year_str,GDP_per_capita\nUSA,2010,100\nUSA,2011,110\n"), 0o644))

	stdout, err := execute(t, "derive", "--in", in, "--out", out)
	require.NoError(t, err)

	var result operations.DeriveResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 2, result.Rows)
	assert.Contains(t, result.Columns, "GDP_per_capita_yoy")

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), "USA,2011,110,2011,10")
}

func TestDeriveCommand_NoPeriodKey(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(in, []byte("country_code,GDP_per_capita\nUSA,100\n"), 0o644))

	_, err := execute(t, "derive", "--in", in, "--out", filepath.Join(dir, "out.csv"))
	assert.ErrorIs(t, err, dataprocessing.ErrPeriodKeyMissing)
	assert.NoFileExists(t, filepath.Join(dir, "out.csv"))
}

func TestLocationsCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "locations", "--json", "--aggregates=false")
	require.NoError(t, err)
	var locations []domain.Location
	require.NoError(t, json.Unmarshal([]byte(out), &locations))
	require.Len(t, locations, 2)
	assert.Equal(t, "USA", locations[0].Code)

	out, err = execute(t, "locations")
	require.NoError(t, err)
	assert.Contains(t, out, "CODE")
	assert.Contains(t, out, "Germany")
	assert.Contains(t, out, "WLD")
}

func TestServeCommand_BadAddr(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "serve", "--addr", "nonsense")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(fmt.Errorf("run: %w", dataprocessing.ErrNoData)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}
