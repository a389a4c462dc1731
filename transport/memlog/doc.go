// Package memlog provides in-process transports: an authoritative Log that
// assigns serials and replays from any resume point, and a best-effort
// preview Bus. They back simulations, tests and the relay server's default
// log.
package memlog
