package dataprocessing

import "context"

// Processor transforms a panel into a new panel
type Processor interface {
	Process(ctx context.Context, panel *Table) (*Table, error)
}

// ProcessingOptions configures derivation behavior
type ProcessingOptions struct {
	// EnableForwardFill fills missing cells before change rates are computed
	EnableForwardFill bool
}

// DefaultOptions returns default processing options
func DefaultOptions() ProcessingOptions {
	return ProcessingOptions{
		EnableForwardFill: true,
	}
}
