package engine

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// DefaultBusyTimeoutMs is applied to file databases so concurrent writers
// (several local replicas sharing one log file) wait instead of failing.
const DefaultBusyTimeoutMs = 5000

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./grid.sqlite"; every pooled
// connection gets WAL journaling and a busy timeout. For in-memory databases,
// pass ":memory:"; the pool is limited to one connection because every
// connection to ":memory:" is a separate database.
func Open(dsn string) (*sql.DB, error) {
	if dsn == MemoryDSN {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		return db, nil
	}
	return sql.Open("sqlite", withPragmas(dsn))
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", dsn, sep, DefaultBusyTimeoutMs)
}
