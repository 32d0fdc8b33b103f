// Package history persists executed-plan traces to a local SQLite
// database. Only the compact observations are stored; full artifacts
// never leave the session.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/marcvidal/datapilot/pkg/planner"
)

// Run is one recorded execution of an approved plan.
type Run struct {
	ID           int64                 `json:"id"`
	SessionID    string                `json:"session_id"`
	PlanID       string                `json:"plan_id"`
	Why          string                `json:"why"`
	Observations []planner.Observation `json:"observations"`
	CreatedAt    time.Time             `json:"created_at"`
}

// Store is the run-history database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the history database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id   TEXT NOT NULL,
			plan_id      TEXT NOT NULL,
			why          TEXT NOT NULL,
			observations TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("initializing history schema: %w", err)
	}
	return nil
}

// Record stores one execution attempt. Artifacts are deliberately
// excluded; the trace is observations only.
func (s *Store) Record(sessionID string, plan *planner.Plan, result *planner.ExecutionResult) error {
	if plan == nil || result == nil {
		return errors.New("plan and result are required")
	}

	obs, err := json.Marshal(result.Observations)
	if err != nil {
		return fmt.Errorf("encoding observations: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO runs (session_id, plan_id, why, observations) VALUES (?, ?, ?, ?)",
		sessionID, plan.ID, plan.Why, string(obs),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	log.Debug().Str("session_id", sessionID).Str("plan_id", plan.ID).Msg("Run recorded")
	return nil
}

// Recent returns the newest runs for a session, most recent first.
func (s *Store) Recent(sessionID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		"SELECT id, session_id, plan_id, why, observations, created_at FROM runs WHERE session_id = ? ORDER BY id DESC LIMIT ?",
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var obs string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.PlanID, &r.Why, &obs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(obs), &r.Observations); err != nil {
			return nil, fmt.Errorf("decoding observations for run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountForSession returns how many runs a session has recorded.
func (s *Store) CountForSession(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs WHERE session_id = ?", sessionID).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
