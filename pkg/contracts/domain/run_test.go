package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunSummary_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 90*time.Second, RunSummary{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}.Duration())
	assert.Zero(t, RunSummary{StartedAt: start}.Duration(), "unfinished")
}

func TestDiagnosticsSummary_HasFailures(t *testing.T) {
	assert.False(t, DiagnosticsSummary{Warnings: []Diagnostic{{Code: "A"}}}.HasFailures())
	assert.True(t, DiagnosticsSummary{Failures: []Diagnostic{{Code: "A", Message: "empty"}}}.HasFailures())
}
