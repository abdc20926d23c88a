// Package store keeps a ledger of pipeline runs and their per-indicator
// diagnostics in a SQLite database.
//
// The store is written to after every run. A failure to record a run is
// reported to the caller but never changes the outcome of the run itself.
package store
