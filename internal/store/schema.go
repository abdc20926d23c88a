package store

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL,
	locations     TEXT NOT NULL,
	period_start  INTEGER NOT NULL,
	period_end    INTEGER NOT NULL,
	indicators    INTEGER NOT NULL,
	contributed   INTEGER NOT NULL,
	panel_rows    INTEGER NOT NULL,
	panel_columns INTEGER NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	artifacts     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
CREATE TABLE IF NOT EXISTS run_diagnostics (
	run_id   TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	seq      INTEGER NOT NULL,
	severity TEXT NOT NULL,
	code     TEXT NOT NULL,
	name     TEXT NOT NULL DEFAULT '',
	message  TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

const (
	severityFailure = "failure"
	severityWarning = "warning"
)

func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}
