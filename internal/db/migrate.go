package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Every statement is idempotent so the
// full list is replayed on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// ALTER TABLE ADD COLUMN has no IF NOT EXISTS form.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	// Server of record: one row per persisted node, users are parentless roots.
	`CREATE TABLE IF NOT EXISTS nodes (
		id            TEXT PRIMARY KEY,
		client_id     TEXT NOT NULL UNIQUE,
		parent_id     TEXT REFERENCES nodes(id) ON DELETE CASCADE,
		kind          TEXT NOT NULL
		              CHECK(kind IN ('user','resume','organization','role','achievement')),
		fields        TEXT NOT NULL DEFAULT '{}',
		order_value   INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		last_modified TEXT NOT NULL,
		deleted_at    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind)`,

	// Client side: one persisted tree per store name.
	`CREATE TABLE IF NOT EXISTS local_state (
		store_name     TEXT PRIMARY KEY,
		schema_version INTEGER NOT NULL,
		root_client_id TEXT NOT NULL,
		tree           TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,
	`ALTER TABLE local_state ADD COLUMN last_synced_at TEXT`,
}
