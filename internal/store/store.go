// Package store persists engine support info between server runs.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"formatls/internal/engine"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a SQLite-backed cache of engine support info, keyed by engine
// identity and version.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
	now    func() time.Time
}

// Open opens (or creates) the database at path. Use ":memory:" for a
// private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Get returns the support info stored for an engine version.
func (s *Store) Get(engineID, version string) (engine.SupportInfo, error) {
	if s.closed.Load() {
		return engine.SupportInfo{}, ErrDatabaseClosed
	}

	var raw string
	err := s.db.QueryRow(
		"SELECT info FROM support_info WHERE engine = ? AND version = ?",
		engineID, version,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.SupportInfo{}, ErrNotFound
	}
	if err != nil {
		return engine.SupportInfo{}, fmt.Errorf("failed to query support info: %w", err)
	}

	var info engine.SupportInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return engine.SupportInfo{}, fmt.Errorf("corrupt support info for %s@%s: %w", engineID, version, err)
	}
	return info, nil
}

// Put stores support info, replacing any previous entry.
func (s *Store) Put(engineID, version string, info engine.SupportInfo) error {
	if s.closed.Load() {
		return ErrDatabaseClosed
	}

	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode support info: %w", err)
	}

	_, err = s.db.Exec(`
        INSERT INTO support_info (engine, version, info, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(engine, version) DO UPDATE SET
            info = excluded.info,
            updated_at = excluded.updated_at
    `, engineID, version, string(raw), s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert support info: %w", err)
	}
	return nil
}

// Prune deletes entries not written since before and returns how many were
// removed.
func (s *Store) Prune(before time.Time) (int64, error) {
	if s.closed.Load() {
		return 0, ErrDatabaseClosed
	}

	result, err := s.db.Exec("DELETE FROM support_info WHERE updated_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune support info: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected, nil
}
