package config

import (
	"time"

	"wdipanel/pkg/contracts"
)

// Application constants
const (
	AppName    = "wdipanel"
	AppVersion = contracts.Version

	// EnvPrefix namespaces every environment variable (WDI_PIPELINE_START_DATE, ...)
	EnvPrefix = "WDI"
	// ConfigFileEnv names an explicit YAML config file
	ConfigFileEnv = "WDI_CONFIG_FILE"

	// DateLayout is the layout of the pipeline start and end dates
	DateLayout = "2006-01-02"
)

// Pipeline defaults
const (
	DefaultStartDate = "2010-01-01"
	DefaultEndDate   = "2022-12-31"
	DefaultSourceID  = 2
	DefaultLocations = "all"
)

// Source defaults
const (
	DefaultSourceBaseURL = "https://api.worldbank.org/v2"
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultRateLimit     = 5.0 // requests per second
	DefaultBurstSize     = 5
	DefaultPerPage       = 1000
	MaxPerPage           = 32500
)

// Artifact file names, relative to the processed directory
const (
	RawPanelFileName       = "world_bank_raw_data.csv"
	ProcessedPanelFileName = "world_bank_processed.csv"
	LocationsFileName      = "country_info.csv"
	WorkbookFileName       = "world_bank_panel.xlsx"
	RunsDatabaseFileName   = "runs.db"
	LogFileName            = "wdipanel.log"
)

// Directory defaults, relative to the base directory
const (
	DefaultDataDir      = "data"
	DefaultProcessedDir = "data/processed"
	DefaultLogsDir      = "logs"
)

// Log settings
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "console"
)

// HTTP surface
const (
	APIBasePath     = "/api"
	HealthEndpoint  = "/healthz"
	MetricsEndpoint = "/metrics"
)
