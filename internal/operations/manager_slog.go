package operations

import (
	"context"
	"log/slog"
	"time"
)

// logOperationStart logs the start of a run
func (m *Manager) logOperationStart(ctx context.Context, runID string, req RunRequest) {
	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", runID),
		slog.String("locations", req.Locations.String()),
		slog.String("period", req.Period.Query()),
		slog.Int("source", req.SourceID),
		slog.Any("indicators", req.Registry.Names()))
}

// logOperationComplete logs the end of a run with its diagnostics summary
func (m *Manager) logOperationComplete(ctx context.Context, result *RunResult) {
	level := slog.LevelInfo
	if result.Error != "" {
		level = slog.LevelError
	}
	m.logger.Log(ctx, level, "operation_complete",
		slog.String("operation_id", result.ID),
		slog.String("status", string(result.Status)),
		slog.Duration("duration", result.Duration()),
		slog.Int("indicators", result.Indicators),
		slog.Int("contributed", result.Contributed),
		slog.Int("panel_rows", result.PanelRows),
		slog.Int("panel_columns", result.PanelColumns),
		slog.String("error", result.Error))

	for _, d := range result.Diagnostics.Failures {
		m.logger.WarnContext(ctx, "operation_diagnostic",
			slog.String("operation_id", result.ID),
			slog.String("kind", "failure"),
			slog.String("indicator", d.Name),
			slog.String("code", d.Code),
			slog.String("reason", d.Message))
	}
	for _, d := range result.Diagnostics.Warnings {
		m.logger.InfoContext(ctx, "operation_diagnostic",
			slog.String("operation_id", result.ID),
			slog.String("kind", "warning"),
			slog.String("indicator", d.Name),
			slog.String("code", d.Code),
			slog.String("message", d.Message))
	}
}

// logStageStart logs the start of a step
func (m *Manager) logStageStart(ctx context.Context, runID, stepID string, number, total int) {
	m.logger.InfoContext(ctx, "stage_start",
		slog.String("operation_id", runID),
		slog.String("step", stepID),
		slog.Int("stage_number", number),
		slog.Int("total_stages", total))
}

// logStageComplete logs the end of a step
func (m *Manager) logStageComplete(ctx context.Context, runID, stepID string, status StepStatus, duration time.Duration, message string) {
	m.logger.InfoContext(ctx, "stage_complete",
		slog.String("operation_id", runID),
		slog.String("step", stepID),
		slog.String("status", string(status)),
		slog.Duration("duration", duration),
		slog.String("message", message))
}

// logStageError logs a step error
func (m *Manager) logStageError(ctx context.Context, runID, stepID string, err error) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}
	m.logger.ErrorContext(ctx, "stage_error",
		slog.String("operation_id", runID),
		slog.String("step", stepID),
		slog.String("error", errorMsg))
}
