package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wdipanel/internal/errors"
	"wdipanel/pkg/contracts/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, started time.Time) domain.RunSummary {
	return domain.RunSummary{
		ID:           id,
		Status:       domain.RunStatusSucceeded,
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
		Locations:    "all[all]",
		Period:       domain.PeriodRange{Start: 2010, End: 2022},
		Indicators:   8,
		Contributed:  7,
		PanelRows:    120,
		PanelColumns: 10,
		Artifacts:    map[string]string{"raw": "/data/wdi_raw.csv"},
		Diagnostics: domain.DiagnosticsSummary{
			Failures: []domain.Diagnostic{{Code: "SP.POP.TOTL", Name: "population", Message: "data was empty for population"}},
			Warnings: []domain.Diagnostic{{Code: "SP.DYN.LE00.IN", Name: "life_expectancy", Message: "indicator column not numeric"}},
		},
	}
}

func TestStore_RecordAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	started := time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC)
	run := sampleRun("run-1", started)

	require.NoError(t, s.Record(ctx, run))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.Equal(t, 3*time.Second, got.Duration())
}

func TestStore_RecordReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun("run-1", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.Record(ctx, run))

	run.Status = domain.RunStatusFailed
	run.Error = "no indicator produced data"
	run.Artifacts = nil
	run.Diagnostics.Warnings = []domain.Diagnostic{}
	require.NoError(t, s.Record(ctx, run))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusFailed, runs[0].Status)
	assert.Equal(t, "no indicator produced data", runs[0].Error)
	assert.Nil(t, runs[0].Artifacts)
	assert.Len(t, runs[0].Diagnostics.Failures, 1)
	assert.Empty(t, runs[0].Diagnostics.Warnings)
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, sampleRun("b", base.Add(time.Minute))))
	require.NoError(t, s.Record(ctx, sampleRun("a", base)))
	require.NoError(t, s.Record(ctx, sampleRun("c", base.Add(time.Minute+time.Millisecond))))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	runs, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)
}

func TestStore_Empty(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	runs, err := s.List(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	_, err = s.Latest(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	diags, err := s.Diagnostics(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, diags.HasFailures())
}

func TestStore_Diagnostics(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	run := sampleRun("run-1", time.Now())
	run.Diagnostics.Failures = append(run.Diagnostics.Failures,
		domain.Diagnostic{Code: "NY.GDP.PCAP.KD", Name: "GDP_per_capita", Message: "error fetching GDP_per_capita"})
	require.NoError(t, s.Record(ctx, run))

	diags, err := s.Diagnostics(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Diagnostics, diags)
}

func TestStore_RecordRequiresID(t *testing.T) {
	s := openTestStore(t)
	err := s.Record(context.Background(), domain.RunSummary{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestStore_ReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, sampleRun("run-1", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Get(ctx, "run-1")
	assert.NoError(t, err)
}
