package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresStore scopes entries by namespace so several clients can share one
// database.
type PostgresStore struct {
	db        *sql.DB
	namespace string
}

func NewPostgresStore(db *sql.DB, namespace string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, fmt.Errorf("storage namespace is required")
	}
	s := &PostgresStore{db: db, namespace: namespace}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS client_local_storage (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (namespace, key)
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure client_local_storage schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(key string) (string, error) {
	var v string
	const q = `SELECT value FROM client_local_storage WHERE namespace = $1 AND key = $2`
	if err := s.db.QueryRow(q, s.namespace, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("query storage entry: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) Set(key, value string) error {
	const q = `
INSERT INTO client_local_storage (namespace, key, value, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (namespace, key) DO UPDATE
SET value = EXCLUDED.value,
	updated_at = NOW()`
	if _, err := s.db.Exec(q, s.namespace, key, value); err != nil {
		return fmt.Errorf("upsert storage entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const q = `DELETE FROM client_local_storage WHERE namespace = $1 AND key = $2`
	for _, k := range keys {
		if _, err := tx.Exec(q, s.namespace, k); err != nil {
			return fmt.Errorf("delete storage entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit storage tx: %w", err)
	}
	return nil
}
