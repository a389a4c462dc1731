package memlog

import (
	"context"
	"sync"

	"github.com/viant/gridsync/transport"
)

// subscriberBuffer bounds how far a slow preview subscriber may lag before
// messages to it are dropped.
const subscriberBuffer = 256

// Bus is a best-effort in-memory preview channel. Every subscriber, the
// sender included, receives each message unless its buffer is full.
type Bus struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewBus returns a bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan []byte]struct{})}
}

// Send fans payload out without blocking.
func (b *Bus) Send(_ context.Context, payload []byte) error {
	msg := append([]byte(nil), payload...)
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done.
func (b *Bus) Subscribe(ctx context.Context) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

var _ transport.Preview = (*Bus)(nil)
