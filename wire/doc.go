// Package wire encodes the two payloads exchanged between replicas:
//   - Update: one committed stroke on the authoritative log
//   - Preview: one provisional cell write on the ephemeral channel
//
// Both encodings are sequences of unsigned varints so small grids and early
// clocks cost a few bytes per message.
package wire
