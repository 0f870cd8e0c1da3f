package store

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

func initSchema(db *sql.DB) error {
	var version int
	err := db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The table only holds derived data, so older layouts are dropped.
	queries := []string{
		`DROP TABLE IF EXISTS support_info`,
		`CREATE TABLE support_info (
            engine TEXT NOT NULL,
            version TEXT NOT NULL,
            info TEXT NOT NULL,
            updated_at INTEGER NOT NULL,
            PRIMARY KEY (engine, version)
        )`,
		`CREATE INDEX idx_support_info_updated ON support_info(updated_at)`,
	}
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %q: %w", query, err)
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return tx.Commit()
}
