package redispreview

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/viant/gridsync/transport"
)

// DefaultChannelPrefix is prepended to the board id to name the channel.
const DefaultChannelPrefix = "gridsync:preview:"

type envelope struct {
	Sender  string `json:"sender"`
	Payload []byte `json:"payload"`
}

// Preview is a transport.Preview on one Redis channel. Messages sent by this
// Preview are not delivered back to its own subscribers.
type Preview struct {
	client  *redis.Client
	channel string
	id      string
	logger  *log.Logger
}

// New returns a preview channel for board on client.
func New(client *redis.Client, board string, logger *log.Logger) *Preview {
	if logger == nil {
		logger = log.Default()
	}
	return &Preview{client: client, channel: DefaultChannelPrefix + board, id: uuid.NewString(), logger: logger}
}

// Connect creates a client for addr and checks it with PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redispreview: connect %s: %w", addr, err)
	}
	return client, nil
}

// Channel returns the Redis channel name.
func (p *Preview) Channel() string { return p.channel }

// Send publishes payload to the board channel.
func (p *Preview) Send(ctx context.Context, payload []byte) error {
	msg, err := json.Marshal(envelope{Sender: p.id, Payload: payload})
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, msg).Err(); err != nil {
		return fmt.Errorf("redispreview: publish to %s: %w", p.channel, err)
	}
	return nil
}

// Subscribe streams payloads from other senders until ctx is done. It
// returns once Redis has confirmed the subscription.
func (p *Preview) Subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := p.client.Subscribe(ctx, p.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redispreview: subscribe to %s: %w", p.channel, err)
	}
	out := make(chan []byte, 256)
	go func() {
		defer close(out)
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var e envelope
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					p.logger.Printf("[redispreview] drop malformed message on %s: %v", p.channel, err)
					continue
				}
				if e.Sender == p.id {
					continue
				}
				select {
				case out <- e.Payload:
				default:
				}
			}
		}
	}()
	return out, nil
}

var _ transport.Preview = (*Preview)(nil)
