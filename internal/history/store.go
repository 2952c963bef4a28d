// Package history keeps finished run reports in a local SQLite database so
// runs can be listed and compared later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/rocketship-ai/uiprobe/internal/artifacts"
	"github.com/rocketship-ai/uiprobe/internal/report"
)

// DefaultLimit caps List when the caller passes no limit.
const DefaultLimit = 20

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Store is the run history database.
type Store struct {
	db *sqlx.DB
}

// Summary is one row of the history listing.
type Summary struct {
	ID          string
	Scenario    string
	StartedAt   time.Time
	FinishedAt  time.Time
	Success     bool
	Passed      int
	Failed      int
	Aborted     bool
	AbortReason string
	Artifacts   string
}

type row struct {
	ID          string `db:"id"`
	Scenario    string `db:"scenario"`
	StartedAt   int64  `db:"started_at"`
	FinishedAt  int64  `db:"finished_at"`
	Success     bool   `db:"success"`
	Passed      int    `db:"passed"`
	Failed      int    `db:"failed"`
	Aborted     bool   `db:"aborted"`
	AbortReason string `db:"abort_reason"`
	Artifacts   string `db:"artifacts"`
}

func (r row) summary() Summary {
	return Summary{
		ID:          r.ID,
		Scenario:    r.Scenario,
		StartedAt:   time.Unix(0, r.StartedAt),
		FinishedAt:  time.Unix(0, r.FinishedAt),
		Success:     r.Success,
		Passed:      r.Passed,
		Failed:      r.Failed,
		Aborted:     r.Aborted,
		AbortReason: r.AbortReason,
		Artifacts:   r.Artifacts,
	}
}

// DefaultPath is history.db under the uiprobe run directory.
func DefaultPath() (string, error) {
	base, err := artifacts.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "history.db"), nil
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. An empty path uses DefaultPath.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save records a finalized report. Saving the same run twice replaces the
// earlier row.
func (s *Store) Save(ctx context.Context, rep *report.RunReport) error {
	if rep.RunID == "" {
		return errors.New("run id required")
	}
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	const query = `
        INSERT OR REPLACE INTO runs (
            id, scenario, started_at, finished_at, success, passed, failed,
            aborted, abort_reason, artifacts, report
        )
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	if _, err := s.db.ExecContext(ctx, query,
		rep.RunID, rep.Scenario, rep.StartedAt.UnixNano(), rep.FinishedAt.UnixNano(),
		rep.Success(), rep.Passed(), rep.Failed(),
		rep.Aborted, rep.AbortReason, rep.Artifacts, string(data)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs first. An empty scenario lists every
// scenario; a limit of zero or less means DefaultLimit.
func (s *Store) List(ctx context.Context, scenario string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, scenario, started_at, finished_at, success, passed, failed, aborted, abort_reason, artifacts FROM runs`
	args := []interface{}{}
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]Summary, len(rows))
	for i, r := range rows {
		out[i] = r.summary()
	}
	return out, nil
}

// Get loads the full report of a run.
func (s *Store) Get(ctx context.Context, id string) (*report.RunReport, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `SELECT report FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	rep := &report.RunReport{}
	if err := json.Unmarshal([]byte(data), rep); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return rep, nil
}
