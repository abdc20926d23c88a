package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wdipanel/internal/infrastructure"
)

const (
	TracerName = "wdipanel.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer backed by providers. Nil providers give
// a tracer that only uses the global (usually no-op) tracer provider and
// records no metrics.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	if providers == nil {
		return &OperationTracer{tracer: otel.Tracer(TracerName)}, nil
	}

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	tracer := providers.Tracer
	if providers.TracerProvider != nil {
		tracer = providers.TracerProvider.Tracer(TracerName)
	}
	return &OperationTracer{tracer: tracer, metrics: metrics}, nil
}

// Metrics returns the pipeline instruments, nil when metrics are off
func (pt *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	return pt.metrics
}

// TraceRun creates a span for an entire run
func (pt *OperationTracer) TraceRun(ctx context.Context, runID string, req RunRequest) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "operation.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", runID),
			attribute.String("operation.locations", req.Locations.String()),
			attribute.String("operation.period", req.Period.Query()),
			attribute.Int("operation.indicators", req.Registry.Len()),
		),
	)
}

// TraceStep creates a span for one step
func (pt *OperationTracer) TraceStep(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, fmt.Sprintf("operation.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", runID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordStepCompletion ends a step span and records its metrics
func (pt *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, status StepStatus, duration time.Duration, err error) {
	span.SetAttributes(
		attribute.String("step.status", string(status)),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
	)
	if err != nil && status == StepStatusFailed {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	pt.metrics.RecordStep(ctx, stepID, string(status), duration)
}

// RecordRunCompletion ends the run span and records run metrics
func (pt *OperationTracer) RecordRunCompletion(ctx context.Context, span trace.Span, result *RunResult) {
	failed := len(result.Diagnostics.Failures)
	span.SetAttributes(
		attribute.String("operation.status", string(result.Status)),
		attribute.Int("operation.contributed", result.Contributed),
		attribute.Int("operation.failed_indicators", failed),
		attribute.Int("operation.panel_rows", result.PanelRows),
	)
	if result.Error != "" {
		span.SetStatus(codes.Error, result.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	pt.metrics.RecordRun(ctx, string(result.Status), result.Duration(), result.Contributed, failed, result.PanelRows)
}
