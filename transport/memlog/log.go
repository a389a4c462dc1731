package memlog

import (
	"context"
	"sync"

	"github.com/viant/gridsync/transport"
)

// Log is an in-memory authoritative log. Entry i has serial i+1.
type Log struct {
	mu      sync.Mutex
	entries [][]byte
	changed chan struct{} // closed and replaced on every append
}

// New returns an empty log.
func New() *Log {
	return &Log{changed: make(chan struct{})}
}

// Publish appends a copy of payload.
func (l *Log) Publish(_ context.Context, payload []byte) error {
	l.mu.Lock()
	l.entries = append(l.entries, append([]byte(nil), payload...))
	close(l.changed)
	l.changed = make(chan struct{})
	l.mu.Unlock()
	return nil
}

// Len returns the number of entries, which is also the highest serial.
func (l *Log) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.entries))
}

// Entries returns deliveries for every entry with serial greater than resume,
// each stamped with the current max serial. It is a replay and inspection
// helper for driving replicas by hand; consumers normally use Subscribe.
func (l *Log) Entries(resume uint64) []transport.Delivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	max := uint64(len(l.entries))
	var out []transport.Delivery
	for s := resume + 1; s <= max; s++ {
		out = append(out, transport.Delivery{Payload: l.entries[s-1], Serial: s, MaxSerial: max})
	}
	return out
}

// Subscribe streams entries after resume until ctx is done.
func (l *Log) Subscribe(ctx context.Context, resume uint64) (<-chan transport.Delivery, error) {
	out := make(chan transport.Delivery)
	go func() {
		defer close(out)
		next := resume + 1
		for {
			l.mu.Lock()
			max := uint64(len(l.entries))
			changed := l.changed
			var d transport.Delivery
			ready := next <= max
			if ready {
				d = transport.Delivery{Payload: l.entries[next-1], Serial: next, MaxSerial: max}
			}
			l.mu.Unlock()

			if !ready {
				select {
				case <-changed:
					continue
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- d:
				next++
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var _ transport.Log = (*Log)(nil)
