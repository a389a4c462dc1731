// Package transport defines the contracts a replica needs from its network:
//   - Log: an authoritative, reliable, ordered log that assigns serials
//   - Preview: an optional best-effort channel for provisional writes
//
// Implementations live in sub-packages: memlog (in-process), sqlitelog
// (SQLite file shared by local processes), wsrelay (WebSocket relay) and
// redispreview (Redis pub/sub previews).
package transport
