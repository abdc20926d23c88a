package operations

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wdipanel/internal/config"
	"wdipanel/internal/dataprocessing"
	"wdipanel/internal/shared/testutil"
	"wdipanel/internal/worldbank"
	"wdipanel/pkg/contracts/domain"
)

func TestPipeline_AgainstWorldBankAPI(t *testing.T) {
	server := testutil.NewWorldBankServer(t, nil)
	logger, _ := testutil.NewTestLogger(t)
	client := worldbank.NewClient(config.SourceConfig{
		BaseURL:   server.BaseURL(),
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		Burst:     10,
		PerPage:   4,
	}, worldbank.WithLogger(logger))

	m, err := NewPipeline(Dependencies{
		Fetcher:   client,
		Locations: client,
		Paths:     testPaths(t),
		Logger:    logger,
	}, nil)
	require.NoError(t, err)

	result, err := m.Execute(context.Background(), RunRequest{
		Registry:  domain.MustRegistry(gdpSpec, lifeSpec, popSpec),
		Locations: domain.AllLocations(),
		Period:    domain.PeriodRange{Start: 2010, End: 2012},
		SourceID:  2,
	})
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	assert.Equal(t, 2, result.Contributed)
	assert.Equal(t, 6, result.PanelRows)
	require.Len(t, result.Diagnostics.Failures, 1)
	assert.Equal(t, popSpec.Code, result.Diagnostics.Failures[0].Code)
	assert.Len(t, result.Locations, 3)

	panel := result.Panel
	require.NotNil(t, panel)
	assert.Equal(t, "DEU", panel.Get(2, dataprocessing.LocationKey).String())
	assert.Equal(t, "2012", panel.Get(2, dataprocessing.PeriodKey).String())
	yoy, ok := panel.Get(2, gdpSpec.YoYColumn()).Float()
	require.True(t, ok)
	assert.InDelta(t, 12.5, yoy, 1e-9)

	fetched := 0
	for _, uri := range server.Requests() {
		if strings.HasPrefix(uri, "/v2/country/all/indicator/") {
			fetched++
		}
	}
	assert.GreaterOrEqual(t, fetched, 3)
}
