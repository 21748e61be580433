package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLite is a Cache backed by a local SQLite database.
// Uses WAL mode for concurrent read access.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite cache at the given path.
// Applies required pragmas and the schema automatically; safe to call
// multiple times.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: connect: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent Set calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache: execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Get returns the entry for key, or ErrMiss. Stale rows are deleted on
// the way out.
func (s *SQLite) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT content_type, body, expires FROM results WHERE key = ?", key)

	var entry Entry
	var expires int64
	if err := row.Scan(&entry.ContentType, &entry.Body, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: get %q: %w", key, err)
	}
	entry.Expires = time.Unix(expires, 0)
	if !entry.Fresh(time.Now()) {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM results WHERE key = ?", key)
		return nil, ErrMiss
	}
	return &entry, nil
}

// Set stores an entry, replacing any previous one for the key.
func (s *SQLite) Set(ctx context.Context, key string, entry *Entry) error {
	if !entry.Fresh(time.Now()) {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO results (key, content_type, body, expires) VALUES (?, ?, ?, ?)",
		key, entry.ContentType, entry.Body, entry.Expires.Unix())
	if err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}

// Purge deletes every expired row and returns the number removed.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM results WHERE expires < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("cache: purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
