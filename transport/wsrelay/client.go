package wsrelay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/viant/gridsync/transport"
	"github.com/viant/gridsync/transport/memlog"
)

// ErrNotConnected is returned by preview sends while no socket is open.
var ErrNotConnected = errors.New("wsrelay: not connected")

// Client is a peer's connection to a relay. It implements transport.Log;
// Previews returns the matching transport.Preview. Previews are only received
// while a log subscription is running, since both share the socket. A Client
// is meant for one Subscribe at a time.
type Client struct {
	url        string
	id         string
	dialer     *websocket.Dialer
	logger     *log.Logger
	newBackOff func() backoff.BackOff

	mu    sync.Mutex
	conn  *websocket.Conn
	ready chan struct{} // closed while conn is set
	wmu   sync.Mutex    // serialises socket writes

	previews *memlog.Bus
}

// ClientOption customises a Client.
type ClientOption func(c *Client)

// WithClientID sets the id announced to the relay; a random UUID otherwise.
func WithClientID(id string) ClientOption {
	return func(c *Client) { c.id = id }
}

// WithClientLogger sets the logger; log.Default() otherwise.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithBackOff sets the reconnect policy. The policy should not give up on
// its own; the subscription context bounds retries.
func WithBackOff(fn func() backoff.BackOff) ClientOption {
	return func(c *Client) { c.newBackOff = fn }
}

// NewClient returns a client for the relay at url (ws://host:port/ws). No
// connection is made until Subscribe.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:      url,
		dialer:   websocket.DefaultDialer,
		ready:    make(chan struct{}),
		previews: memlog.NewBus(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.newBackOff == nil {
		c.newBackOff = defaultBackOff
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// ID returns the id announced to the relay.
func (c *Client) ID() string { return c.id }

// Subscribe connects to the relay and streams entries after resume. On
// disconnect it redials with backoff and resumes after the last delivered
// serial, so the stream has no gaps or repeats. The channel closes when ctx
// is done.
func (c *Client) Subscribe(ctx context.Context, resume uint64) (<-chan transport.Delivery, error) {
	out := make(chan transport.Delivery)
	go c.follow(ctx, resume, out)
	return out, nil
}

func (c *Client) follow(ctx context.Context, last uint64, out chan<- transport.Delivery) {
	defer close(out)
	for ctx.Err() == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			return
		}
		if err = c.write(conn, Message{Type: TypeHello, Client: c.id, Resume: last}); err == nil {
			c.attach(conn)
			err = c.read(ctx, conn, &last, out)
			c.detach(conn)
		}
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.logger.Printf("[relay client %s] connection lost at serial %d: %v", c.id, last, err)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	op := func() error {
		ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Printf("[relay client %s] dial %s: %v", c.id, c.url, err)
			}
			return err
		}
		conn = ws
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		if conn != nil {
			_ = conn.Close()
		}
		return nil, ctx.Err()
	}
	return conn, nil
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn, last *uint64, out chan<- transport.Delivery) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			return err
		}
		switch m.Type {
		case TypeUpdate:
			if m.Serial <= *last {
				continue
			}
			d := transport.Delivery{Payload: m.Payload, Serial: m.Serial, MaxSerial: m.MaxSerial}
			select {
			case out <- d:
				*last = m.Serial
			case <-ctx.Done():
				return ctx.Err()
			}
		case TypePreview:
			_ = c.previews.Send(ctx, m.Payload)
		}
	}
}

// Publish sends payload to the relay, waiting for a connection if none is open.
func (c *Client) Publish(ctx context.Context, payload []byte) error {
	conn, err := c.await(ctx)
	if err != nil {
		return fmt.Errorf("wsrelay: publish: %w", err)
	}
	if err := c.write(conn, Message{Type: TypePublish, Client: c.id, Payload: payload}); err != nil {
		return fmt.Errorf("wsrelay: publish: %w", err)
	}
	return nil
}

// Previews returns the preview channel carried by this client's socket.
func (c *Client) Previews() transport.Preview {
	return previewChannel{c: c}
}

type previewChannel struct {
	c *Client
}

// Send forwards payload to the relay; it fails fast while disconnected.
func (p previewChannel) Send(_ context.Context, payload []byte) error {
	p.c.mu.Lock()
	conn := p.c.conn
	p.c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return p.c.write(conn, Message{Type: TypePreview, Client: p.c.id, Payload: payload})
}

// Subscribe streams previews from other peers until ctx is done.
func (p previewChannel) Subscribe(ctx context.Context) (<-chan []byte, error) {
	return p.c.previews.Subscribe(ctx)
}

func (c *Client) await(ctx context.Context) (*websocket.Conn, error) {
	for {
		c.mu.Lock()
		conn, ready := c.conn, c.ready
		c.mu.Unlock()
		if conn != nil {
			return conn, nil
		}
		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Client) write(conn *websocket.Conn, m Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteJSON(m)
}

func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == nil {
		close(c.ready)
	}
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.ready = make(chan struct{})
	}
	c.mu.Unlock()
}

var (
	_ transport.Log     = (*Client)(nil)
	_ transport.Preview = previewChannel{}
)
