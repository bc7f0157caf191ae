// Package history keeps a queryable record of resolution outcomes in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id TEXT NOT NULL,
	ts          INTEGER NOT NULL,
	dependency  TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	error_code  TEXT NOT NULL DEFAULT '',
	fork_path   TEXT NOT NULL DEFAULT '',
	fork_valid  INTEGER NOT NULL DEFAULT 0,
	override    TEXT
);
CREATE INDEX IF NOT EXISTS idx_decisions_dependency ON decisions(dependency, id);
`

// Row is one recorded outcome.
type Row struct {
	DecisionID string    `json:"decision_id"`
	Time       time.Time `json:"time"`
	Dependency string    `json:"dependency"`
	Source     string    `json:"source,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	ForkPath   string    `json:"fork_path"`
	ForkValid  bool      `json:"fork_valid"`
	// Override is nil when the variable was unset.
	Override *string `json:"override,omitempty"`
}

// Outcome identifies the row for transition detection.
func (r Row) Outcome() string {
	if r.ErrorCode != "" {
		return r.ErrorCode
	}
	return r.Source + "/" + r.Reason
}

// Store is a SQLite-backed history. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts a row. A zero Time is replaced with the current time.
func (s *Store) Record(ctx context.Context, r Row) error {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	var override sql.NullString
	if r.Override != nil {
		override = sql.NullString{String: *r.Override, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (decision_id, ts, dependency, source, reason, error_code, fork_path, fork_valid, override)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.DecisionID, r.Time.UTC().UnixMilli(), r.Dependency, r.Source, r.Reason, r.ErrorCode,
		r.ForkPath, r.ForkValid, override)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit rows, newest first. A limit of zero or less
// returns every row.
func (s *Store) Recent(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	return s.query(ctx, `SELECT decision_id, ts, dependency, source, reason, error_code, fork_path, fork_valid, override
		FROM decisions ORDER BY id DESC LIMIT ?`, limit)
}

// Transitions returns up to limit rows, newest first, whose outcome differs
// from the previous row for the same dependency. A limit of zero or less
// returns every transition. The first row recorded for
// a dependency is always a transition.
func (s *Store) Transitions(ctx context.Context, limit int) ([]Row, error) {
	all, err := s.query(ctx, `SELECT decision_id, ts, dependency, source, reason, error_code, fork_path, fork_valid, override
		FROM decisions ORDER BY id ASC LIMIT -1`)
	if err != nil {
		return nil, err
	}

	last := make(map[string]string)
	var changes []Row
	for _, r := range all {
		if prev, ok := last[r.Dependency]; ok && prev == r.Outcome() {
			continue
		}
		last[r.Dependency] = r.Outcome()
		changes = append(changes, r)
	}

	// newest first
	for i, j := 0, len(changes)-1; i < j; i, j = i+1, j-1 {
		changes[i], changes[j] = changes[j], changes[i]
	}
	if limit > 0 && len(changes) > limit {
		changes = changes[:limit]
	}
	return changes, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r        Row
			ts       int64
			override sql.NullString
		)
		if err := rows.Scan(&r.DecisionID, &ts, &r.Dependency, &r.Source, &r.Reason, &r.ErrorCode,
			&r.ForkPath, &r.ForkValid, &override); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.Time = time.UnixMilli(ts).UTC()
		if override.Valid {
			v := override.String
			r.Override = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
