// Package snapshot persists a replica's committed state for restart recovery.
// It includes:
//   - State and the Store interface
//   - SQLiteStore: single-row SQLite table (modernc.org/sqlite)
//   - BoltStore: one bbolt bucket/key
//   - PostgresStore: pgx-backed upsert, shared by replicas of one deployment
//   - MemoryStore: in-process store for tests and simulations
//   - Cell encoding (BLOB) shared by all durable backends
package snapshot
