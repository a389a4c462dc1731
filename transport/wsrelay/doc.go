// Package wsrelay carries the authoritative log and the preview channel over
// one WebSocket per peer.
//
// The Server fronts any transport.Log: peers publish updates through it, it
// streams the log back from each peer's resume point, and it fans previews
// out to every other connected peer. The Client is the peer side; it
// reconnects with exponential backoff and resumes after the last serial it
// delivered.
package wsrelay
