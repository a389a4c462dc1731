// Package sqlitelog implements the authoritative log on a SQLite database.
// Publishers insert payloads into an inbox table; a trigger assigns the next
// per-board serial from a sequence table and moves the payload into the log
// table, so serial assignment is atomic even with several processes writing
// to one database file. Subscribers poll the log table from their resume
// serial.
package sqlitelog
