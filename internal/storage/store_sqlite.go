package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-file embedded driver; the schema matches
// PostgresStore.
type SQLiteStore struct {
	db        *sql.DB
	namespace string
}

func OpenSQLite(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps SQLITE_BUSY out of the picture.
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewSQLiteStore(db *sql.DB, namespace string) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, fmt.Errorf("storage namespace is required")
	}
	s := &SQLiteStore{db: db, namespace: namespace}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS client_local_storage (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure client_local_storage schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(key string) (string, error) {
	var v string
	const q = `SELECT value FROM client_local_storage WHERE namespace = ? AND key = ?`
	if err := s.db.QueryRow(q, s.namespace, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("query storage entry: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	const q = `
INSERT INTO client_local_storage (namespace, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (namespace, key) DO UPDATE
SET value = excluded.value,
	updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.Exec(q, s.namespace, key, value); err != nil {
		return fmt.Errorf("upsert storage entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(keys ...string) error {
	const q = `DELETE FROM client_local_storage WHERE namespace = ? AND key = ?`
	for _, k := range keys {
		if _, err := s.db.Exec(q, s.namespace, k); err != nil {
			return fmt.Errorf("delete storage entry: %w", err)
		}
	}
	return nil
}
