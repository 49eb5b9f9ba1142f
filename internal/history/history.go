// Package history persists run reports to a local SQLite database so an
// operator can answer "what did the last build of this image actually
// do" after the build VM is gone. History is additive only: runs are
// inserted, never updated or deleted.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"goldrun"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	plan       TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at   TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	halted_at  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS step_results (
	run_id     INTEGER NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	label      TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at   TEXT NOT NULL,
	status     TEXT NOT NULL,
	output     TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);`

// Step statuses as stored.
const (
	StatusOK      = "ok"
	StatusIgnored = "ignored"
	StatusFailed  = "failed"
)

// Store is the run history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is one recorded run.
type Run struct {
	ID        int64
	Plan      string
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   goldrun.Outcome
	HaltedAt  string
	Steps     int
}

// StepRow is one recorded step result.
type StepRow struct {
	Seq       int
	Label     string
	StartedAt time.Time
	EndedAt   time.Time
	Status    string
	Output    string
}

// Record inserts a finished run and its step results.
func (s *Store) Record(ctx context.Context, rep *goldrun.Report) (int64, error) {
	var started, ended time.Time
	if n := len(rep.Results); n > 0 {
		started = rep.Results[0].StartedAt
		ended = rep.Results[n-1].EndedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (plan, started_at, ended_at, outcome, halted_at) VALUES (?, ?, ?, ?, ?)`,
		rep.Plan, started.Format(time.RFC3339), ended.Format(time.RFC3339), string(rep.Outcome), rep.HaltedAt)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for i, r := range rep.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO step_results (run_id, seq, label, started_at, ended_at, status, output) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, r.Label, r.StartedAt.Format(time.RFC3339), r.EndedAt.Format(time.RFC3339), status(r), r.Output); err != nil {
			return 0, fmt.Errorf("insert step result %q: %w", r.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func status(r goldrun.Result) string {
	switch {
	case r.OK():
		return StatusOK
	case r.Ignored:
		return StatusIgnored
	default:
		return StatusFailed
	}
}

// Runs lists recorded runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.plan, r.started_at, r.ended_at, r.outcome, r.halted_at, COUNT(sr.run_id)
		FROM runs r LEFT JOIN step_results sr ON sr.run_id = r.id
		GROUP BY r.id ORDER BY r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one run and its step results.
func (s *Store) Get(ctx context.Context, id int64) (Run, []StepRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.plan, r.started_at, r.ended_at, r.outcome, r.halted_at, COUNT(sr.run_id)
		FROM runs r LEFT JOIN step_results sr ON sr.run_id = r.id
		WHERE r.id = ? GROUP BY r.id`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, nil, fmt.Errorf("run %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, label, started_at, ended_at, status, output
		FROM step_results WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("query step results: %w", err)
	}
	defer rows.Close()

	var steps []StepRow
	for rows.Next() {
		var (
			sr               StepRow
			startRaw, endRaw string
		)
		if err := rows.Scan(&sr.Seq, &sr.Label, &startRaw, &endRaw, &sr.Status, &sr.Output); err != nil {
			return Run{}, nil, fmt.Errorf("scan step result: %w", err)
		}
		sr.StartedAt, _ = time.Parse(time.RFC3339, startRaw)
		sr.EndedAt, _ = time.Parse(time.RFC3339, endRaw)
		steps = append(steps, sr)
	}
	return run, steps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r                Run
		outcome          string
		startRaw, endRaw string
	)
	if err := row.Scan(&r.ID, &r.Plan, &startRaw, &endRaw, &outcome, &r.HaltedAt, &r.Steps); err != nil {
		return Run{}, err
	}
	r.Outcome = goldrun.Outcome(outcome)
	r.StartedAt, _ = time.Parse(time.RFC3339, startRaw)
	r.EndedAt, _ = time.Parse(time.RFC3339, endRaw)
	return r, nil
}
