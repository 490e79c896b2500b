package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when no document exists at the path.
var ErrNotFound = errors.New("document not found")

// ErrExists is returned by Create when the path is already occupied.
var ErrExists = errors.New("document already exists")

// Store is a path-addressed JSON document store backed by SQLite. Documents
// are keyed by slash-separated paths ("patients/<id>", "charts/<id>",
// "review/<id>"); the chart and matching logic never see the wire form.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS locks (
	name       TEXT PRIMARY KEY,
	holder     TEXT NOT NULL,
	expires_at TEXT NOT NULL
);
`

// Open opens (or creates) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get decodes the document at path into out.
func (s *Store) Get(ctx context.Context, path string, out any) error {
	var body string
	err := s.db.GetContext(ctx, &body, "SELECT body FROM documents WHERE path = ?", path)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Create stores v at path, failing if a document is already there.
func (s *Store) Create(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (path, body, updated_at) VALUES (?, ?, ?)",
		path, string(body), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		var exists bool
		if chkErr := s.db.GetContext(ctx, &exists,
			"SELECT COUNT(*) > 0 FROM documents WHERE path = ?", path); chkErr == nil && exists {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

// Upsert stores v at path, replacing any existing document.
func (s *Store) Upsert(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (path, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		path, string(body), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}
	return nil
}

// List walks every document whose path starts with prefix.
func (s *Store) List(ctx context.Context, prefix string, each func(path string, raw []byte) error) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, body FROM documents WHERE path LIKE ? ORDER BY path", prefix+"%")
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()
	for rows.Next() {
		var path, body string
		if err := rows.Scan(&path, &body); err != nil {
			return err
		}
		if err := each(path, []byte(body)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Decode is the registry.Decoder for this store's wire form.
func Decode(raw []byte, v any) error {
	return json.Unmarshal(raw, v)
}
