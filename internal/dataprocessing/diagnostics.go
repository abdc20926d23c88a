package dataprocessing

import (
	"wdipanel/pkg/contracts/domain"
)

// Collector accumulates per-indicator problems over one run without aborting it.
// Failures are keyed by indicator code (last reason wins, first position kept);
// warnings are kept in the order they were raised. A nil Collector ignores writes.
type Collector struct {
	registry domain.Registry
	failures map[string]string
	order    []string
	warnings []domain.Diagnostic
}

// NewCollector creates a collector that resolves indicator names from the registry
func NewCollector(registry domain.Registry) *Collector {
	return &Collector{
		registry: registry,
		failures: make(map[string]string),
	}
}

// Record notes why an indicator did not contribute a column
func (c *Collector) Record(code, reason string) {
	if c == nil {
		return
	}
	if _, seen := c.failures[code]; !seen {
		c.order = append(c.order, code)
	}
	c.failures[code] = reason
}

// Warn notes a suspicious but non-fatal event for an indicator
func (c *Collector) Warn(code, message string) {
	if c == nil {
		return
	}
	c.warnings = append(c.warnings, domain.Diagnostic{
		Code:    code,
		Name:    c.name(code),
		Message: message,
	})
}

// Reason returns the recorded failure for an indicator, if any
func (c *Collector) Reason(code string) (string, bool) {
	if c == nil {
		return "", false
	}
	r, ok := c.failures[code]
	return r, ok
}

// Failed reports whether a failure was recorded for the indicator
func (c *Collector) Failed(code string) bool {
	_, ok := c.Reason(code)
	return ok
}

// Len returns the number of failed indicators
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Summary returns a snapshot of failures and warnings
func (c *Collector) Summary() domain.DiagnosticsSummary {
	summary := domain.DiagnosticsSummary{
		Failures: []domain.Diagnostic{},
		Warnings: []domain.Diagnostic{},
	}
	if c == nil {
		return summary
	}
	for _, code := range c.order {
		summary.Failures = append(summary.Failures, domain.Diagnostic{
			Code:    code,
			Name:    c.name(code),
			Message: c.failures[code],
		})
	}
	summary.Warnings = append(summary.Warnings, c.warnings...)
	return summary
}

func (c *Collector) name(code string) string {
	if spec, ok := c.registry.Lookup(code); ok {
		return spec.Name
	}
	return code
}
