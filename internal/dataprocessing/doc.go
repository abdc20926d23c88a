// Package dataprocessing reconciles independently fetched indicator tables into a
// single country × year panel and derives year-over-year change rates from it.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Normalizer: converts one raw indicator result into a Frame keyed by
// (country_code, year_str) with one value column named after the indicator
// 2. Merger: outer-joins all frames into the wide panel
// 3. Deriver: forward-fills the panel, derives the numeric year and appends
// per-location "<indicator>_yoy" columns
// 4. Collector: accumulates per-indicator diagnostics for the end-of-run summary
//
// Gatherer drives the Normalizer over a Fetcher, one indicator at a time.
//
// # Data Flow
//
//	Fetcher → Normalizer (per indicator) → Frames → Merger → Panel → Deriver → Processed Panel
//	                   ↘ Collector (failures, warnings)
//
// # Error Handling
//
// Per-indicator problems never abort a run: they are returned as *IndicatorError
// and recorded in the Collector. Only ErrNoData (nothing to merge) is terminal.
// ErrPeriodKeyMissing skips derivation but still returns the panel.
//
// # Missing values
//
// A missing value is Null, never zero. Forward-fill walks rows in panel order,
// across locations; change rates are computed per location with no further filling.
package dataprocessing
