package operations

import (
	"time"

	"wdipanel/internal/dataprocessing"
	"wdipanel/pkg/contracts/domain"
)

// RunResult is the outcome of one run
type RunResult struct {
	domain.RunSummary
	Steps []StepSnapshot `json:"steps"`

	// Panel is the processed panel, or the raw panel when derivation was skipped
	Panel *dataprocessing.Table `json:"-"`
	// Locations is the location metadata the run collected
	Locations []domain.Location `json:"-"`
}

// Succeeded reports whether the run produced a panel
func (r *RunResult) Succeeded() bool {
	return r != nil && r.Status == domain.RunStatusSucceeded
}

func buildResult(state *OperationState, finished time.Time) *RunResult {
	data := state.Data
	req := data.Request
	diagnostics := data.Diagnostics.Summary()

	summary := domain.RunSummary{
		ID:          state.ID,
		Status:      domain.RunStatusSucceeded,
		StartedAt:   state.StartTime,
		FinishedAt:  finished,
		Locations:   req.Locations.String(),
		Period:      req.Period,
		Indicators:  req.Registry.Len(),
		Contributed: len(data.Frames),
		Artifacts:   make(map[string]string, len(data.Artifacts)),
		Diagnostics: diagnostics,
	}
	for k, v := range data.Artifacts {
		summary.Artifacts[k] = v
	}
	if state.Error != nil {
		summary.Status = domain.RunStatusFailed
		summary.Error = state.Error.Error()
	}

	panel := data.Processed
	if panel == nil {
		panel = data.RawPanel
	}
	if panel != nil {
		summary.PanelRows = panel.Len()
		summary.PanelColumns = len(panel.Columns())
	}

	return &RunResult{
		RunSummary: summary,
		Steps:      state.StepSnapshots(),
		Panel:      panel,
		Locations:  data.Locations,
	}
}
