package snapshot

import (
	"context"
	"database/sql"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS grid_snapshot (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    width      INTEGER NOT NULL,
    height     INTEGER NOT NULL,
    cells      BLOB NOT NULL,
    clock      INTEGER NOT NULL,
    serial     INTEGER NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates the snapshot table in the provided SQLite database if
// it does not already exist. The table holds at most one row.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, snapshotSchema)
	return err
}
