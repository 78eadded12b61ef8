// Package sqlite provides a ThreadStore backed by a single SQLite database file.
// It uses the pure-Go modernc.org/sqlite driver, so no cgo toolchain is needed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	subject    TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store implements ports.ThreadStore on a SQLite table keyed by subject.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the clock used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the database at dsn and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer at a time; an in-memory database is also per-connection.
	db.SetMaxOpenConns(1)

	s, err := NewFromDB(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB wraps an existing handle and ensures the schema exists.
func NewFromDB(db *sql.DB, opts ...Option) (*Store, error) {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the thread as a JSON document.
func (s *Store) Save(ctx context.Context, subjectID string, thread *domain.Thread) error {
	data, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (subject, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(subject) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		subjectID, data, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save thread %q: %w", subjectID, err)
	}
	return nil
}

// Load reads the thread for subjectID.
func (s *Store) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM threads WHERE subject = ?`, subjectID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %q: %w", subjectID, err)
	}

	var thread domain.Thread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thread %q: %w", subjectID, err)
	}
	return &thread, nil
}

// Delete removes the row. Deleting a missing subject is not an error.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE subject = ?`, subjectID); err != nil {
		return fmt.Errorf("failed to delete thread %q: %w", subjectID, err)
	}
	return nil
}

// List returns subjects, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject FROM threads ORDER BY updated_at DESC, subject`)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}
