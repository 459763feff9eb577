// Package session persists authentication sessions the agent negotiates
// mid-run, keyed by platform and domain.
package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/rahul/botpilot/internal/engine"
)

type Session struct {
	InstanceID string
	Platform   string
	Domain     string
	AcquiredAt time.Time
}

type Registry struct {
	DB *sql.DB
}

func NewRegistry(dbPath string) (*Registry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	query := `CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		instance_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		domain TEXT NOT NULL DEFAULT '',
		acquired_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(instance_id, platform, domain)
	);`
	if _, err := db.Exec(query); err != nil {
		return nil, err
	}

	return &Registry{DB: db}, nil
}

// SaveSession upserts: re-acquiring the same platform+domain refreshes
// the timestamp instead of piling up rows.
func (r *Registry) SaveSession(ctx context.Context, instanceID, platform, domain string) error {
	query := `INSERT INTO sessions (instance_id, platform, domain) VALUES (?, ?, ?)
		ON CONFLICT(instance_id, platform, domain) DO UPDATE SET acquired_at = CURRENT_TIMESTAMP`
	_, err := r.DB.ExecContext(ctx, query, instanceID, platform, domain)
	return err
}

// ListSessions returns the sessions known for an instance, oldest first.
func (r *Registry) ListSessions(ctx context.Context, instanceID string) ([]Session, error) {
	query := `SELECT instance_id, platform, domain, acquired_at FROM sessions WHERE instance_id = ? ORDER BY acquired_at, id`
	rows, err := r.DB.QueryContext(ctx, query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.InstanceID, &s.Platform, &s.Domain, &s.AcquiredAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *Registry) Close() error {
	return r.DB.Close()
}

// Fanout writes a session to every backing store; any failure comes back
// joined so the caller can log each one.
type Fanout []engine.SessionStore

func (f Fanout) SaveSession(ctx context.Context, instanceID, platform, domain string) error {
	var errs []error
	for _, s := range f {
		if err := s.SaveSession(ctx, instanceID, platform, domain); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
