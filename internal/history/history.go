// Package history records every delivered injection in a local sqlite
// database so operators can answer "what did we send this worker, and when"
// after the fact. The database lives at ~/.bullhorn/history.db.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS injections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	worker TEXT NOT NULL,
	mechanism TEXT NOT NULL,
	kind TEXT NOT NULL,
	content TEXT NOT NULL,
	sent_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_injections_worker ON injections(worker);
`

// Record is one delivered injection.
type Record struct {
	ID        int64
	Worker    string
	Mechanism string
	Kind      string
	Content   string
	SentAt    time.Time
}

// Store is the injection history database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns ~/.bullhorn/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".bullhorn", "history.db"), nil
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records a delivered injection.
func (s *Store) Append(worker, mechanism, kind, content string) error {
	_, err := s.db.Exec(
		`INSERT INTO injections (worker, mechanism, kind, content, sent_at) VALUES (?, ?, ?, ?, ?)`,
		worker, mechanism, kind, content, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording injection: %w", err)
	}
	return nil
}

// Recent returns the most recent n records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, worker, mechanism, kind, content, sent_at
		 FROM injections ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByWorker returns all records for one worker, newest first.
func (s *Store) ByWorker(worker string) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, worker, mechanism, kind, content, sent_at
		 FROM injections WHERE worker = ? ORDER BY id DESC`, worker)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", worker, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Count returns the total number of recorded injections.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM injections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var sentAt int64
		if err := rows.Scan(&r.ID, &r.Worker, &r.Mechanism, &r.Kind, &r.Content, &sentAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		r.SentAt = time.Unix(sentAt, 0)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}
	return records, nil
}
