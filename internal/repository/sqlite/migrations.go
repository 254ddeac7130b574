package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Время хранится строкой RFC3339Nano в UTC: так его одинаково читают
// modernc и libsql.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS short_links (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		original_url     TEXT    NOT NULL,
		short_code       TEXT    NOT NULL UNIQUE,
		created_at       TEXT    NOT NULL,
		last_accessed_at TEXT,
		access_count     INTEGER NOT NULL DEFAULT 0,
		is_active        INTEGER NOT NULL DEFAULT 1,
		custom_alias     TEXT,
		expires_at       TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS short_link_daily_clicks (
		link_id INTEGER NOT NULL REFERENCES short_links(id),
		day     TEXT    NOT NULL,
		clicks  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (link_id, day)
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
