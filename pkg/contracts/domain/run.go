package domain

import "time"

// Diagnostic explains why an indicator did not contribute, or what was odd about it
type Diagnostic struct {
	Code    string `json:"code"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// DiagnosticsSummary is the end-of-run view of per-indicator problems
type DiagnosticsSummary struct {
	Failures []Diagnostic `json:"failures"`
	Warnings []Diagnostic `json:"warnings"`
}

// HasFailures reports whether any indicator failed
func (s DiagnosticsSummary) HasFailures() bool {
	return len(s.Failures) > 0
}

// RunStatus is the terminal state of a run
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunSummary is the persisted, API-visible record of one run
type RunSummary struct {
	ID           string             `json:"id"`
	Status       RunStatus          `json:"status"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	Locations    string             `json:"locations"`
	Period       PeriodRange        `json:"period"`
	Indicators   int                `json:"indicators"`
	Contributed  int                `json:"contributed"`
	PanelRows    int                `json:"panel_rows"`
	PanelColumns int                `json:"panel_columns"`
	Error        string             `json:"error,omitempty"`
	Artifacts    map[string]string  `json:"artifacts,omitempty"`
	Diagnostics  DiagnosticsSummary `json:"diagnostics"`
}

// Duration returns how long the run took
func (r RunSummary) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
