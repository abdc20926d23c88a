package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths, resolved to absolute form.
// It is the single source of truth for artifact locations.
type Paths struct {
	BaseDir      string
	DataDir      string
	ProcessedDir string
	LogsDir      string

	// Artifacts
	RawPanelCSV       string
	ProcessedPanelCSV string
	LocationsCSV      string
	WorkbookXLSX      string

	// Run history and logs
	RunsDatabase string
	LogFile      string
}

// ResolvePaths resolves the configured directories against BaseDir, or the
// working directory when BaseDir is empty
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	dataDir := resolve(cfg.DataDir)
	processedDir := resolve(cfg.ProcessedDir)
	logsDir := resolve(cfg.LogsDir)

	return &Paths{
		BaseDir:      base,
		DataDir:      dataDir,
		ProcessedDir: processedDir,
		LogsDir:      logsDir,

		RawPanelCSV:       filepath.Join(processedDir, RawPanelFileName),
		ProcessedPanelCSV: filepath.Join(processedDir, ProcessedPanelFileName),
		LocationsCSV:      filepath.Join(processedDir, LocationsFileName),
		WorkbookXLSX:      filepath.Join(processedDir, WorkbookFileName),

		RunsDatabase: filepath.Join(dataDir, RunsDatabaseFileName),
		LogFile:      filepath.Join(logsDir, LogFileName),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ProcessedDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Artifacts maps artifact names to their paths
func (p *Paths) Artifacts() map[string]string {
	return map[string]string{
		"raw":       p.RawPanelCSV,
		"processed": p.ProcessedPanelCSV,
		"locations": p.LocationsCSV,
		"workbook":  p.WorkbookXLSX,
	}
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("artifacts",
			slog.String("raw_panel", p.RawPanelCSV),
			slog.String("processed_panel", p.ProcessedPanelCSV),
			slog.String("locations", p.LocationsCSV),
			slog.String("workbook", p.WorkbookXLSX),
		),
		slog.String("runs_database", p.RunsDatabase))
}
