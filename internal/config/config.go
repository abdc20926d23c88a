package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"wdipanel/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig           `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig          `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig            `yaml:"paths" envconfig:"PATHS"`
	Pipeline   PipelineConfig         `yaml:"pipeline" envconfig:"PIPELINE"`
	Source     SourceConfig           `yaml:"source" envconfig:"SOURCE"`
	Telemetry  TelemetryConfig        `yaml:"telemetry" envconfig:"TELEMETRY"`
	Indicators []domain.IndicatorSpec `yaml:"indicators" ignored:"true" validate:"required,min=1,dive"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against BaseDir, which defaults to the working directory.
type PathsConfig struct {
	BaseDir      string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ProcessedDir string `yaml:"processed_dir" envconfig:"PROCESSED_DIR" validate:"required"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// PipelineConfig selects what a run fetches
type PipelineConfig struct {
	StartDate string `yaml:"start_date" envconfig:"START_DATE" validate:"required,datetime=2006-01-02"`
	EndDate   string `yaml:"end_date" envconfig:"END_DATE" validate:"required,datetime=2006-01-02"`
	SourceID  int    `yaml:"source_id" envconfig:"SOURCE_ID" validate:"min=1"`
	Locations string `yaml:"locations" envconfig:"LOCATIONS" validate:"required"`
	Workbook  bool   `yaml:"workbook" envconfig:"WORKBOOK"`
}

// SourceConfig configures the World Bank API client
type SourceConfig struct {
	BaseURL   string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	RateLimit float64       `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"gt=0"`
	Burst     int           `yaml:"burst" envconfig:"BURST" validate:"min=1"`
	PerPage   int           `yaml:"per_page" envconfig:"PER_PAGE" validate:"min=1,max=32500"`
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// TelemetryConfig configures tracing and metrics
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TracesStdout   bool   `yaml:"traces_stdout" envconfig:"TRACES_STDOUT"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from defaults, then an optional YAML file, then
// the environment (highest priority). A .env file in the working directory is
// loaded into the environment first; variables already set are not overridden.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load without .env handling and with an explicit config file.
// An empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg; fields absent from the file keep
// their current values
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	indicators := cfg.Indicators
	cfg.Indicators = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if len(cfg.Indicators) == 0 {
		cfg.Indicators = indicators
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules the tags cannot express
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.PeriodRange(); err != nil {
		return err
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if _, err := c.LocationSelector(); err != nil {
		return err
	}

	// JSON is the only supported log format
	c.Logging.Format = DefaultLogFormat

	return nil
}

// PeriodRange returns the configured year range
func (c *Config) PeriodRange() (domain.PeriodRange, error) {
	return domain.PeriodRangeFromDates(c.Pipeline.StartDate, c.Pipeline.EndDate)
}

// Registry returns the configured indicator registry
func (c *Config) Registry() (domain.Registry, error) {
	return domain.NewRegistry(c.Indicators...)
}

// LocationSelector parses the configured locations
func (c *Config) LocationSelector() (domain.LocationSelector, error) {
	return domain.ParseLocationSelector(c.Pipeline.Locations)
}

// getConfigFilePath returns the config file to use, or "" when there is none
func getConfigFilePath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}

	locations := []string{
		"wdipanel.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if FileExists(location) {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
		Paths: PathsConfig{
			DataDir:      DefaultDataDir,
			ProcessedDir: DefaultProcessedDir,
			LogsDir:      DefaultLogsDir,
		},
		Pipeline: PipelineConfig{
			StartDate: DefaultStartDate,
			EndDate:   DefaultEndDate,
			SourceID:  DefaultSourceID,
			Locations: DefaultLocations,
		},
		Source: SourceConfig{
			BaseURL:   DefaultSourceBaseURL,
			Timeout:   DefaultHTTPTimeout,
			RateLimit: DefaultRateLimit,
			Burst:     DefaultBurstSize,
			PerPage:   DefaultPerPage,
			UserAgent: AppName + "/" + AppVersion,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
		},
		Indicators: domain.DefaultIndicators(),
	}
}
