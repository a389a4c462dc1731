package sqlitelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const (
	// DefaultLogTable holds committed payloads keyed by (board_id, serial).
	DefaultLogTable = "grid_log"

	// DefaultSeqTable stores the last assigned serial per board.
	DefaultSeqTable = "grid_log_seq"

	// DefaultInboxTable receives published payloads before serial assignment.
	DefaultInboxTable = "grid_log_inbox"
)

// Tables names the three tables backing a log.
type Tables struct {
	Log   string
	Seq   string
	Inbox string
}

func (t Tables) withDefaults() Tables {
	if t.Log == "" {
		t.Log = DefaultLogTable
	}
	if t.Seq == "" {
		t.Seq = DefaultSeqTable
	}
	if t.Inbox == "" {
		t.Inbox = DefaultInboxTable
	}
	return t
}

// LogTableDDL returns the DDL for the log table.
func LogTableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    board_id   TEXT NOT NULL,
    serial     INTEGER NOT NULL,
    payload    BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY(board_id, serial)
);`
}

// SeqTableDDL returns the DDL for the per-board serial sequence.
func SeqTableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    board_id    TEXT PRIMARY KEY,
    last_serial INTEGER NOT NULL
);`
}

// InboxTableDDL returns the DDL for the publish inbox.
func InboxTableDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    board_id TEXT NOT NULL,
    payload  BLOB NOT NULL
);`
}

// InboxTrigger returns the trigger that assigns the next serial to every row
// inserted into the inbox, appends it to the log table and clears the inbox row.
func InboxTrigger(tables Tables) string {
	t := tables.withDefaults()
	return fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_ai AFTER INSERT ON %[2]s
BEGIN
    INSERT INTO %[3]s(board_id, last_serial)
    VALUES (NEW.board_id, 1)
    ON CONFLICT(board_id) DO UPDATE SET last_serial = last_serial + 1;
    INSERT INTO %[4]s(board_id, serial, payload)
    VALUES (
        NEW.board_id,
        (SELECT last_serial FROM %[3]s WHERE board_id = NEW.board_id),
        NEW.payload
    );
    DELETE FROM %[2]s WHERE rowid = NEW.rowid;
END;`, sanitizeIdentifier(t.Inbox), t.Inbox, t.Seq, t.Log)
}

// EnsureSchema creates the log, sequence and inbox tables and the trigger.
func EnsureSchema(ctx context.Context, db *sql.DB, tables Tables) error {
	t := tables.withDefaults()
	for _, stmt := range []string{LogTableDDL(t.Log), SeqTableDDL(t.Seq), InboxTableDDL(t.Inbox), InboxTrigger(t)} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlitelog: ensure schema: %w", err)
		}
	}
	return nil
}

func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	replacer := strings.NewReplacer(".", "_", "-", "_")
	return replacer.Replace(name)
}
