package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a single-table SQLite database.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite file at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer — limit to a single connection to
	// prevent SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS kv_store (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`)
	return err
}

// Save writes value under key, replacing any previous value.
func (s *SQLiteStore) Save(key string, value []byte) error {
	_, err := s.conn.Exec(
		`INSERT INTO kv_store (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Load returns the value under key.
func (s *SQLiteStore) Load(key string) ([]byte, bool, error) {
	var value []byte
	err := s.conn.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Remove deletes the value under key.
func (s *SQLiteStore) Remove(key string) error {
	_, err := s.conn.Exec(`DELETE FROM kv_store WHERE key = ?`, key)
	return err
}

// Clear deletes every key.
func (s *SQLiteStore) Clear() error {
	_, err := s.conn.Exec(`DELETE FROM kv_store`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
