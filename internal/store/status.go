// Package store records run outcomes: a last-run status row per
// instance plus the full step history of every run, for diagnosis.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/rahul/botpilot/internal/engine"
)

type RunStatus struct {
	InstanceID           string
	RunID                string
	PlanID               string
	Success              bool
	Cycles               int
	Error                string
	TotalExecutionTimeMs int64
	TokensInput          int
	TokensOutput         int
	FinishedAt           time.Time
}

type StatusStore struct {
	DB *sql.DB
}

func NewStatusStore(dbPath string) (*StatusStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS run_status (
			instance_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			plan_id TEXT,
			success INTEGER NOT NULL,
			cycles INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			total_execution_time_ms INTEGER NOT NULL DEFAULT 0,
			tokens_input INTEGER NOT NULL DEFAULT 0,
			tokens_output INTEGER NOT NULL DEFAULT 0,
			finished_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS run_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			cycle INTEGER NOT NULL,
			kind TEXT NOT NULL,
			raw_message TEXT,
			progress_pct REAL,
			execution_time_ms INTEGER,
			tokens_input INTEGER,
			tokens_output INTEGER,
			at DATETIME
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return nil, err
		}
	}

	return &StatusStore{DB: db}, nil
}

// RecordRun upserts the instance's last-run row and appends the run's
// step history.
func (s *StatusStore) RecordRun(ctx context.Context, res engine.Result) error {
	runID := uuid.NewString()

	query := `INSERT INTO run_status
		(instance_id, run_id, plan_id, success, cycles, error, total_execution_time_ms, tokens_input, tokens_output, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(instance_id) DO UPDATE SET
			run_id = excluded.run_id,
			plan_id = excluded.plan_id,
			success = excluded.success,
			cycles = excluded.cycles,
			error = excluded.error,
			total_execution_time_ms = excluded.total_execution_time_ms,
			tokens_input = excluded.tokens_input,
			tokens_output = excluded.tokens_output,
			finished_at = excluded.finished_at`
	_, err := s.DB.ExecContext(ctx, query,
		res.InstanceID, runID, res.FinalPlanID, res.Success, res.TotalCycles,
		res.Error, res.TotalExecutionTimeMs, res.TotalTokens.Input, res.TotalTokens.Output)
	if err != nil {
		return err
	}

	for _, step := range res.History {
		var pct *float64
		if step.Progress != nil {
			pct = &step.Progress.Percentage
		}
		var tokIn, tokOut int
		if step.Tokens != nil {
			tokIn, tokOut = step.Tokens.Input, step.Tokens.Output
		}
		_, err := s.DB.ExecContext(ctx,
			`INSERT INTO run_steps (run_id, cycle, kind, raw_message, progress_pct, execution_time_ms, tokens_input, tokens_output, at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, step.Cycle, string(step.Response.Kind), step.RawMessage, pct,
			step.ExecutionTimeMs, tokIn, tokOut, step.Timestamp)
		if err != nil {
			return err
		}
	}
	return nil
}

// LastRun returns the most recent outcome for an instance, or nil when
// the instance has never run.
func (s *StatusStore) LastRun(ctx context.Context, instanceID string) (*RunStatus, error) {
	query := `SELECT instance_id, run_id, plan_id, success, cycles, error,
		total_execution_time_ms, tokens_input, tokens_output, finished_at
		FROM run_status WHERE instance_id = ?`

	var st RunStatus
	err := s.DB.QueryRowContext(ctx, query, instanceID).Scan(
		&st.InstanceID, &st.RunID, &st.PlanID, &st.Success, &st.Cycles, &st.Error,
		&st.TotalExecutionTimeMs, &st.TokensInput, &st.TokensOutput, &st.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// StepCount reports how many steps a given run recorded.
func (s *StatusStore) StepCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_steps WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (s *StatusStore) Close() error {
	return s.DB.Close()
}
