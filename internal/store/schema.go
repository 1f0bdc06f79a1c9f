// Package store persists simulation runs and their probe data to SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the run store.
const schemaV1 = `
-- One row per completed scenario run
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    seed INTEGER NOT NULL,
    dt REAL NOT NULL,
    duration REAL NOT NULL,
    steps INTEGER NOT NULL,
    elapsed_ms REAL NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);

-- Probe samples, one row per recorded step
CREATE TABLE IF NOT EXISTS samples (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    probe TEXT NOT NULL,
    t REAL NOT NULL,
    data TEXT NOT NULL,  -- JSON array of floats
    PRIMARY KEY (run_id, probe, t)
);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InitSchema creates all tables if they don't exist and records the schema
// version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	_, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO schema_version (version) VALUES (?)", SchemaVersion)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}
