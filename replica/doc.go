// Package replica owns one peer's view of the shared grid: the committed
// cells, the Lamport clock, the local stroke buffer and a display overlay for
// peers' in-progress strokes.
//
// All mutation goes through Step, one event at a time. Run subscribes to the
// authoritative log (resuming from the snapshot serial) and the optional
// preview channel and serialises their deliveries with local input onto a
// single goroutine, so the replica needs no locks. Tests and simulations call
// Step directly.
package replica
