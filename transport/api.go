package transport

import "context"

// Delivery is one authoritative log entry as seen by a subscriber.
type Delivery struct {
	// Payload is the encoded wire.Update.
	Payload []byte

	// Serial is the log-assigned position of this entry; serials start at 1
	// and strictly increase.
	Serial uint64

	// MaxSerial is the highest serial the log knew about when the entry was
	// delivered. Serial == MaxSerial means the subscriber is caught up.
	MaxSerial uint64
}

// Log is the authoritative channel. Every published payload is delivered to
// every subscriber, the publisher included, in serial order.
type Log interface {
	// Subscribe streams entries with serial greater than resume. The channel
	// is closed when ctx is done or the subscription fails.
	Subscribe(ctx context.Context, resume uint64) (<-chan Delivery, error)

	// Publish appends payload to the log.
	Publish(ctx context.Context, payload []byte) error
}

// Preview is the ephemeral channel. Messages may be lost, duplicated or
// reordered.
type Preview interface {
	// Send broadcasts payload to peers.
	Send(ctx context.Context, payload []byte) error

	// Subscribe streams payloads from peers until ctx is done.
	Subscribe(ctx context.Context) (<-chan []byte, error)
}
