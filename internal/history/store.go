// Package history keeps an audit log of reconciliation runs in SQLite.
// Nothing here is read back by the reconciler.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one reconciliation run and its per-transaction outcomes.
type Run struct {
	ID             int64
	StartedAt      time.Time
	FinishedAt     time.Time
	DryRun         bool
	Policy         string
	FareFiles      int
	FareDates      int
	Uploaded       int
	Skipped        int
	Failed         int
	ReceiptedTotal int64  // minor units
	Error          string // set when the run ended in an error
	Outcomes       []Outcome
}

// Outcome is the stored result for one transaction.
type Outcome struct {
	TransactionID string
	Status        string
	Reason        string
	TravelDate    string // YYYY-MM-DD, empty when unmatched
	ExternalID    string
	Amount        int64
	Total         int64
	Error         string
}

// Store is a SQLite-backed run log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run with its outcomes and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(started_at, finished_at, dry_run, policy, fare_files, fare_dates,
		 uploaded, skipped, failed, receipted_total, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(run.StartedAt), formatTime(run.FinishedAt), run.DryRun, run.Policy,
		run.FareFiles, run.FareDates, run.Uploaded, run.Skipped, run.Failed,
		run.ReceiptedTotal, run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_outcomes
		(run_id, position, transaction_id, status, reason, travel_date,
		 external_id, amount, total, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, o := range run.Outcomes {
		if _, err := stmt.ExecContext(ctx, runID, i, o.TransactionID, o.Status, o.Reason,
			o.TravelDate, o.ExternalID, o.Amount, o.Total, o.Error); err != nil {
			return 0, fmt.Errorf("inserting outcome %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs first, without outcomes.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, finished_at, dry_run, policy, fare_files, fare_dates,
		       uploaded, skipped, failed, receipted_total, error
		FROM runs
		ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.DryRun, &r.Policy, &r.FareFiles, &r.FareDates,
			&r.Uploaded, &r.Skipped, &r.Failed, &r.ReceiptedTotal, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("run %d: %w", r.ID, err)
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Outcomes returns the outcomes of a run in processing order.
func (s *Store) Outcomes(ctx context.Context, runID int64) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, status, reason, travel_date, external_id, amount, total, error
		FROM run_outcomes
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.TransactionID, &o.Status, &o.Reason, &o.TravelDate,
			&o.ExternalID, &o.Amount, &o.Total, &o.Error); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
