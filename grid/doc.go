// Package grid implements the replicated cell store: a fixed-size W×H grid of
// last-writer-wins registers and the merge rule that resolves an incoming
// (value, timestamp) pair against a stored register.
//
// The merge is the convergence core of the system:
//   - a strictly newer timestamp replaces the register
//   - an equal timestamp keeps the timestamp and resolves the value with TieBreak
//   - an older timestamp is discarded
//
// Because TieBreak is commutative, associative and idempotent, any two grids that
// applied the same multiset of updates, in any order and with any duplication,
// hold identical cells.
package grid
