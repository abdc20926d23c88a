package dataprocessing

import "errors"

// Per-indicator failure kinds. An IndicatorError unwraps to one of these.
var (
	ErrEmptyResult     = errors.New("empty result")
	ErrMissingPeriod   = errors.New("missing period column")
	ErrMissingLocation = errors.New("missing location column")
	ErrAmbiguousValue  = errors.New("ambiguous value column")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrFetchFailed     = errors.New("fetch failed")
)

// Run-level conditions
var (
	// ErrNoData means no indicator produced a frame; the run cannot build a panel
	ErrNoData = errors.New("no valid indicator frames to merge")
	// ErrPeriodKeyMissing means the panel has no period key; derivation is skipped
	ErrPeriodKeyMissing = errors.New("panel has no period key column")
)

// IndicatorError is a recoverable failure tied to one indicator.
// Its message is the diagnostic reason recorded for the run summary.
type IndicatorError struct {
	Code   string
	Kind   error
	Reason string
	Cause  error
}

// Error implements the error interface
func (e *IndicatorError) Error() string {
	return e.Reason
}

// Unwrap exposes both the failure kind and the underlying cause
func (e *IndicatorError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
