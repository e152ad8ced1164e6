// Package sqlite provides an SQLite backed device storage.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/hay-kot/reactions/internal/core/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS device_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store implements kv.Store on top of an SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns an entry by key. Returns kv.ErrKeyNotFound if not found.
func (s *Store) Get(ctx context.Context, key string) (kv.Entry, error) {
	var (
		entry            kv.Entry
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, created_at, updated_at FROM device_kv WHERE key = ?`, key,
	).Scan(&entry.Key, &entry.Value, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Entry{}, kv.ErrKeyNotFound
	}
	if err != nil {
		return kv.Entry{}, fmt.Errorf("get %s: %w", key, err)
	}

	entry.CreatedAt = time.UnixMilli(created)
	entry.UpdatedAt = time.UnixMilli(updated)
	return entry, nil
}

// Set creates or updates an entry, preserving created_at on update.
func (s *Store) Set(ctx context.Context, key, value string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_kv (key, value, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now, now,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes an entry by key. Returns kv.ErrKeyNotFound if not found.
func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM device_kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n == 0 {
		return kv.ErrKeyNotFound
	}
	return nil
}
