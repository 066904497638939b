// Package receipt keeps a history of install runs and the outcome of every
// build phase in a SQLite database.
package receipt

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ErrNoRun is returned when a formula has never been installed.
var ErrNoRun = errors.New("no install run recorded")

// Run is one install attempt.
type Run struct {
	ID         string
	Formula    string
	Version    string
	Prefix     string
	Targets    string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Phase is one recorded build phase.
type Phase struct {
	RunID    string
	Seq      int
	Target   string
	Phase    string
	Status   string
	Error    string
	Duration time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	formula     TEXT NOT NULL,
	version     TEXT NOT NULL,
	prefix      TEXT NOT NULL,
	targets     TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_formula ON runs(formula, started_at);
CREATE TABLE IF NOT EXISTS phases (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	target      TEXT NOT NULL,
	phase       TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Store is a receipt database.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create receipt dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init receipt schema: %w", err)
		}
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records the start of an install.
func (s *Store) BeginRun(formula, version, prefix, targets string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Run{
		ID:        uuid.New().String(),
		Formula:   formula,
		Version:   version,
		Prefix:    prefix,
		Targets:   targets,
		Status:    StatusRunning,
		StartedAt: s.now(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, formula, version, prefix, targets, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Formula, r.Version, r.Prefix, r.Targets, r.Status, r.StartedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return r, nil
}

// RecordPhase appends a phase outcome to run. A nil phaseErr is a success.
func (s *Store) RecordPhase(runID, target, phase string, phaseErr error, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, msg := StatusSuccess, ""
	if phaseErr != nil {
		status, msg = StatusFailed, phaseErr.Error()
	}
	_, err := s.db.Exec(
		`INSERT INTO phases (run_id, seq, target, phase, status, error, duration_ms)
		 VALUES (?, (SELECT COUNT(*) FROM phases WHERE run_id = ?), ?, ?, ?, ?, ?)`,
		runID, runID, target, phase, status, msg, d.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record phase %s/%s: %w", target, phase, err)
	}
	return nil
}

// FinishRun marks run as done. A nil runErr is a success.
func (s *Store) FinishRun(runID string, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, msg := StatusSuccess, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, msg, s.now().UnixNano(), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNoRun)
	}
	return nil
}

// LatestRun returns the most recent run of formula.
func (s *Store) LatestRun(formula string) (*Run, error) {
	runs, err := s.Runs(formula, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRun
	}
	return &runs[0], nil
}

// Runs returns up to limit runs of formula, newest first. A limit of zero or
// less returns every run.
func (s *Store) Runs(formula string, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT id, formula, version, prefix, targets, status, error, started_at, finished_at
		 FROM runs WHERE formula = ? ORDER BY started_at DESC LIMIT ?`, formula, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Formula, &r.Version, &r.Prefix, &r.Targets, &r.Status, &r.Error, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started)
		if finished != 0 {
			r.FinishedAt = time.Unix(0, finished)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Phases returns the phases of a run in execution order.
func (s *Store) Phases(runID string) ([]Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT run_id, seq, target, phase, status, error, duration_ms
		 FROM phases WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Phase
	for rows.Next() {
		var p Phase
		var ms int64
		if err := rows.Scan(&p.RunID, &p.Seq, &p.Target, &p.Phase, &p.Status, &p.Error, &ms); err != nil {
			return nil, err
		}
		p.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, p)
	}
	return out, rows.Err()
}
