package operations

import (
	"fmt"

	"wdipanel/internal/config"
	"wdipanel/internal/dataprocessing"
	"wdipanel/pkg/contracts/domain"
)

// RunRequest is everything one run needs to know up front
type RunRequest struct {
	Registry  domain.Registry
	Locations domain.LocationSelector
	Period    domain.PeriodRange
	SourceID  int
	Workbook  bool
}

// FetchRequest returns the part of the request every indicator fetch shares
func (r RunRequest) FetchRequest() dataprocessing.FetchRequest {
	return dataprocessing.FetchRequest{
		Locations: r.Locations,
		Period:    r.Period,
		SourceID:  r.SourceID,
	}
}

// RunRequestFromConfig builds a request from validated configuration
func RunRequestFromConfig(cfg *config.Config) (RunRequest, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return RunRequest{}, fmt.Errorf("indicator registry: %w", err)
	}
	period, err := cfg.PeriodRange()
	if err != nil {
		return RunRequest{}, fmt.Errorf("period range: %w", err)
	}
	locations, err := cfg.LocationSelector()
	if err != nil {
		return RunRequest{}, fmt.Errorf("locations: %w", err)
	}
	return RunRequest{
		Registry:  registry,
		Locations: locations,
		Period:    period,
		SourceID:  cfg.Pipeline.SourceID,
		Workbook:  cfg.Pipeline.Workbook,
	}, nil
}
