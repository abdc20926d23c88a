// Package services holds the application services behind the HTTP surface.
//
// PipelineService owns the in-process view of the pipeline: it triggers runs,
// collapses concurrent triggers onto one in-flight run, keeps the latest
// result and answers panel, diagnostics and run history queries.
// HealthService reports liveness and readiness.
package services
