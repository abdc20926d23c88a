package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wdipanel/pkg/contracts/domain"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wdipanel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadFile tests layering of defaults, file and environment
func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, "2010-01-01", cfg.Pipeline.StartDate)
				assert.Equal(t, "2022-12-31", cfg.Pipeline.EndDate)
				assert.Equal(t, 2, cfg.Pipeline.SourceID)
				assert.Equal(t, "all", cfg.Pipeline.Locations)
				assert.Equal(t, "https://api.worldbank.org/v2", cfg.Source.BaseURL)
				assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
				assert.Len(t, cfg.Indicators, 8)
				assert.Equal(t, "GDP_per_capita", cfg.Indicators[0].Name)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"WDI_SERVER_PORT":         "9090",
				"WDI_PIPELINE_START_DATE": "2015-06-30",
				"WDI_PIPELINE_LOCATIONS":  "USA;DEU",
				"WDI_SOURCE_RATE_LIMIT":   "1.5",
				"WDI_SOURCE_TIMEOUT":      "5s",
				"WDI_LOGGING_LEVEL":       "debug",
				"WDI_PIPELINE_WORKBOOK":   "true",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "2015-06-30", cfg.Pipeline.StartDate)
				assert.Equal(t, "USA;DEU", cfg.Pipeline.Locations)
				assert.Equal(t, 1.5, cfg.Source.RateLimit)
				assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.True(t, cfg.Pipeline.Workbook)
			},
		},
		{
			name: "file overrides defaults, environment overrides file",
			env: map[string]string{
				"WDI_PIPELINE_END_DATE": "2021-12-31",
			},
			file: `
pipeline:
  start_date: "2000-01-01"
  end_date: "2005-12-31"
  locations: "BRA"
source:
  timeout: 10s
indicators:
  - code: SP.POP.TOTL
    name: population
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "2000-01-01", cfg.Pipeline.StartDate)
				assert.Equal(t, "2021-12-31", cfg.Pipeline.EndDate)
				assert.Equal(t, "BRA", cfg.Pipeline.Locations)
				assert.Equal(t, 10*time.Second, cfg.Source.Timeout)
				assert.Equal(t, 8080, cfg.Server.Port, "untouched by file")
				assert.Equal(t, []domain.IndicatorSpec{{Code: "SP.POP.TOTL", Name: "population"}}, cfg.Indicators)
			},
		},
		{
			name: "file without indicators keeps default registry",
			file: "logging:\n  level: warn\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Len(t, cfg.Indicators, 8)
			},
		},
		{
			name:    "invalid date",
			env:     map[string]string{"WDI_PIPELINE_START_DATE": "2010/01/01"},
			wantErr: true,
		},
		{
			name: "start after end",
			env: map[string]string{
				"WDI_PIPELINE_START_DATE": "2020-01-01",
				"WDI_PIPELINE_END_DATE":   "2019-12-31",
			},
			wantErr: true,
		},
		{
			name:    "invalid port",
			env:     map[string]string{"WDI_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "invalid log output",
			env:     map[string]string{"WDI_LOGGING_OUTPUT": "syslog"},
			wantErr: true,
		},
		{
			name:    "invalid base url",
			env:     map[string]string{"WDI_SOURCE_BASE_URL": "not a url"},
			wantErr: true,
		},
		{
			name:    "mixed all and explicit locations",
			env:     map[string]string{"WDI_PIPELINE_LOCATIONS": "all;USA"},
			wantErr: true,
		},
		{
			name: "duplicate indicator names",
			file: `
indicators:
  - code: A
    name: same
  - code: B
    name: same
`,
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "pipeline: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_ConfigFileEnv(t *testing.T) {
	path := writeConfigFile(t, "pipeline:\n  locations: JPN\n")
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "JPN", cfg.Pipeline.Locations)

	sel, err := cfg.LocationSelector()
	require.NoError(t, err)
	code, single := sel.SingleCode()
	assert.True(t, single)
	assert.Equal(t, "JPN", code)
}

func TestConfig_Derived(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	period, err := cfg.PeriodRange()
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodRange{Start: 2010, End: 2022}, period)

	registry, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, 8, registry.Len())

	sel, err := cfg.LocationSelector()
	require.NoError(t, err)
	assert.Equal(t, domain.FetchModeAll, sel.Mode)
}

func TestValidate_ForcesJSONFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}
