package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	apperrors "wdipanel/internal/errors"
	"wdipanel/internal/infrastructure"
	"wdipanel/pkg/contracts/domain"
)

// ErrRunNotFound is returned when no run matches the request
var ErrRunNotFound = apperrors.NewNotFoundError("run")

// fixed-width so that stored timestamps sort lexicographically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists run summaries
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("open run database", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("create run schema", err)
	}
	return &Store{
		db:     db,
		logger: infrastructure.WithComponent(logger, "store"),
	}, nil
}

// PingContext checks that the database is reachable
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run summary and its diagnostics. Recording the same run ID
// twice replaces the earlier record.
func (s *Store) Record(ctx context.Context, run domain.RunSummary) error {
	if run.ID == "" {
		return apperrors.NewAppValidationError("run id is required")
	}
	artifacts, err := json.Marshal(run.Artifacts)
	if err != nil {
		return apperrors.NewStorageError("encode artifacts", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_diagnostics WHERE run_id = ?`, run.ID); err != nil {
		return apperrors.NewStorageError("clear diagnostics", err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (
	id, status, started_at, finished_at, locations, period_start, period_end,
	indicators, contributed, panel_rows, panel_columns, error, artifacts
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Status),
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.Locations, run.Period.Start, run.Period.End,
		run.Indicators, run.Contributed, run.PanelRows, run.PanelColumns,
		run.Error, string(artifacts))
	if err != nil {
		return apperrors.NewStorageError("insert run", err)
	}

	seq := 0
	insert := func(severity string, diags []domain.Diagnostic) error {
		for _, d := range diags {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO run_diagnostics (run_id, seq, severity, code, name, message) VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID, seq, severity, d.Code, d.Name, d.Message)
			if err != nil {
				return apperrors.NewStorageError("insert diagnostic", err)
			}
			seq++
		}
		return nil
	}
	if err := insert(severityFailure, run.Diagnostics.Failures); err != nil {
		return err
	}
	if err := insert(severityWarning, run.Diagnostics.Warnings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("commit run", err)
	}

	s.logger.DebugContext(ctx, "run recorded",
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status)),
		slog.Int("diagnostics", seq))
	return nil
}

const selectRun = `
SELECT id, status, started_at, finished_at, locations, period_start, period_end,
	indicators, contributed, panel_rows, panel_columns, error, artifacts
FROM runs`

// List returns up to limit runs, newest first. A non-positive limit returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.NewStorageError("list runs", err)
	}

	runs := make([]domain.RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, apperrors.NewStorageError("list runs", err)
	}
	rows.Close()

	for i := range runs {
		diags, err := s.Diagnostics(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Diagnostics = diags
	}
	return runs, nil
}

// Get returns one run by ID
func (s *Store) Get(ctx context.Context, id string) (domain.RunSummary, error) {
	return s.one(ctx, selectRun+` WHERE id = ?`, id)
}

// Latest returns the most recently started run
func (s *Store) Latest(ctx context.Context) (domain.RunSummary, error) {
	return s.one(ctx, selectRun+` ORDER BY started_at DESC, rowid DESC LIMIT 1`)
}

func (s *Store) one(ctx context.Context, query string, args ...any) (domain.RunSummary, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunSummary{}, ErrRunNotFound
	}
	if err != nil {
		return domain.RunSummary{}, err
	}
	run.Diagnostics, err = s.Diagnostics(ctx, run.ID)
	if err != nil {
		return domain.RunSummary{}, err
	}
	return run, nil
}

// Diagnostics returns the failures and warnings recorded for a run, in the
// order they were recorded. An unknown run has no diagnostics.
func (s *Store) Diagnostics(ctx context.Context, runID string) (domain.DiagnosticsSummary, error) {
	summary := domain.DiagnosticsSummary{
		Failures: make([]domain.Diagnostic, 0),
		Warnings: make([]domain.Diagnostic, 0),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT severity, code, name, message FROM run_diagnostics WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return summary, apperrors.NewStorageError("query diagnostics", err)
	}
	defer rows.Close()

	for rows.Next() {
		var severity string
		var d domain.Diagnostic
		if err := rows.Scan(&severity, &d.Code, &d.Name, &d.Message); err != nil {
			return summary, apperrors.NewStorageError("scan diagnostic", err)
		}
		if severity == severityWarning {
			summary.Warnings = append(summary.Warnings, d)
		} else {
			summary.Failures = append(summary.Failures, d)
		}
	}
	if err := rows.Err(); err != nil {
		return summary, apperrors.NewStorageError("query diagnostics", err)
	}
	return summary, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.RunSummary, error) {
	var (
		run               domain.RunSummary
		status            string
		started, finished string
		artifacts         string
	)
	err := row.Scan(&run.ID, &status, &started, &finished, &run.Locations,
		&run.Period.Start, &run.Period.End, &run.Indicators, &run.Contributed,
		&run.PanelRows, &run.PanelColumns, &run.Error, &artifacts)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, apperrors.NewStorageError("scan run", err)
	}

	run.Status = domain.RunStatus(status)
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return run, apperrors.NewStorageError(fmt.Sprintf("run %s started_at", run.ID), err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return run, apperrors.NewStorageError(fmt.Sprintf("run %s finished_at", run.ID), err)
	}
	if artifacts != "" && artifacts != "null" {
		if err := json.Unmarshal([]byte(artifacts), &run.Artifacts); err != nil {
			return run, apperrors.NewStorageError(fmt.Sprintf("run %s artifacts", run.ID), err)
		}
	}
	return run, nil
}
