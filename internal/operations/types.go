package operations

import (
	"time"
)

// Pipeline step identifiers, in execution order
const (
	StepIDLocations  = "locations"
	StepIDIndicators = "indicators"
	StepIDMerge      = "merge"
	StepIDDerive     = "derive"
	StepIDExport     = "export"
)

// Pipeline step names
const (
	StepNameLocations  = "Location Metadata"
	StepNameIndicators = "Indicator Collection"
	StepNameMerge      = "Panel Merge"
	StepNameDerive     = "Derived Metrics"
	StepNameExport     = "Artifact Export"
)

// Artifact names used in run summaries
const (
	ArtifactRaw       = "raw"
	ArtifactProcessed = "processed"
	ArtifactLocations = "locations"
	ArtifactWorkbook  = "workbook"
)

// Default timeouts
const (
	DefaultStepTimeout       = 30 * time.Minute
	DefaultIndicatorsTimeout = 60 * time.Minute
	DefaultLocationsTimeout  = 5 * time.Minute
)
