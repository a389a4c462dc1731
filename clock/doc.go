// Package clock provides the process-wide Lamport clock that stamps
// authoritative updates.
package clock
