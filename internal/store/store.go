// Package store keeps a local SQLite index of past experiments so results
// can be listed and located without scanning the results directory. It is
// written best-effort after the results document lands on disk; the JSON
// document stays the source of truth.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"aspectbench/internal/experiment"
)

const schemaVersion = 1

var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS experiments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment_id TEXT NOT NULL UNIQUE,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	repos TEXT NOT NULL,
	started_at TEXT NOT NULL,
	elapsed_seconds REAL NOT NULL,
	results_path TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS mode_summaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	attempted INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	errored INTEGER NOT NULL,
	tests_fixed INTEGER NOT NULL,
	true_regressions INTEGER NOT NULL,
	UNIQUE(experiment_id, mode)
);
`

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// Store is the SQLite-backed experiment index.
type Store struct {
	db *sql.DB
}

// Open opens or creates the index at path and applies the schema. Creates
// the parent directory if it does not exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if count == 0 {
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// ExperimentInfo is one indexed experiment.
type ExperimentInfo struct {
	ExperimentID string
	Provider     string
	Model        string
	Repos        string
	StartedAt    string
	ElapsedSec   float64
	ResultsPath  string
	Summaries    []ModeRow
}

// ModeRow is one mode's aggregate for an indexed experiment.
type ModeRow struct {
	Mode            string
	Attempted       int
	Passed          int
	Failed          int
	Errored         int
	TestsFixed      int
	TrueRegressions int
}

// Record indexes a finished experiment and its per-mode summaries.
// Re-recording the same experiment id replaces the previous rows.
func (s *Store) Record(doc *experiment.Document, resultsPath string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	startedAt := doc.StartedAt.UTC().Format(time.RFC3339)
	if doc.StartedAt.IsZero() {
		startedAt = nowUTC()
	}

	repos := ""
	for i, r := range doc.Repos {
		if i > 0 {
			repos += ","
		}
		repos += r
	}

	_, err = tx.Exec(`INSERT INTO experiments
		(experiment_id, provider, model, repos, started_at, elapsed_seconds, results_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(experiment_id) DO UPDATE SET
			provider=excluded.provider, model=excluded.model, repos=excluded.repos,
			started_at=excluded.started_at, elapsed_seconds=excluded.elapsed_seconds,
			results_path=excluded.results_path`,
		doc.ExperimentID, doc.Provider, doc.Model, repos, startedAt, doc.ElapsedSec, resultsPath)
	if err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}

	for _, mode := range doc.Modes {
		sum := doc.Summary[mode]
		if sum == nil {
			continue
		}
		_, err = tx.Exec(`INSERT INTO mode_summaries
			(experiment_id, mode, attempted, passed, failed, errored, tests_fixed, true_regressions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(experiment_id, mode) DO UPDATE SET
				attempted=excluded.attempted, passed=excluded.passed,
				failed=excluded.failed, errored=excluded.errored,
				tests_fixed=excluded.tests_fixed, true_regressions=excluded.true_regressions`,
			doc.ExperimentID, mode, sum.Attempted, sum.Passed, sum.Failed,
			sum.Errored, sum.TestsFixed, sum.TrueRegressions)
		if err != nil {
			return fmt.Errorf("insert mode summary: %w", err)
		}
	}
	return tx.Commit()
}

// List returns indexed experiments, newest first, with their summaries.
func (s *Store) List(limit int) ([]ExperimentInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT experiment_id, provider, model, repos,
		started_at, elapsed_seconds, results_path
		FROM experiments ORDER BY experiment_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer rows.Close()

	var out []ExperimentInfo
	for rows.Next() {
		var info ExperimentInfo
		if err := rows.Scan(&info.ExperimentID, &info.Provider, &info.Model,
			&info.Repos, &info.StartedAt, &info.ElapsedSec, &info.ResultsPath); err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		sums, err := s.modeSummaries(out[i].ExperimentID)
		if err != nil {
			return nil, err
		}
		out[i].Summaries = sums
	}
	return out, nil
}

func (s *Store) modeSummaries(experimentID string) ([]ModeRow, error) {
	rows, err := s.db.Query(`SELECT mode, attempted, passed, failed, errored,
		tests_fixed, true_regressions
		FROM mode_summaries WHERE experiment_id = ? ORDER BY mode`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []ModeRow
	for rows.Next() {
		var m ModeRow
		if err := rows.Scan(&m.Mode, &m.Attempted, &m.Passed, &m.Failed,
			&m.Errored, &m.TestsFixed, &m.TrueRegressions); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
