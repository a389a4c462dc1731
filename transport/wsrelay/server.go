package wsrelay

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/viant/gridsync/transport"
)

// sendBuffer bounds the messages queued for one peer. Updates wait for room;
// previews are dropped when it is full.
const sendBuffer = 256

// Server relays one authoritative log to WebSocket peers.
type Server struct {
	log      transport.Log
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// ServerOption customises a Server.
type ServerOption func(s *Server)

// WithServerLogger sets the logger; log.Default() otherwise.
func WithServerLogger(l *log.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer returns a relay in front of l.
func NewServer(l transport.Log, opts ...ServerOption) *Server {
	s := &Server{
		log:   l,
		peers: make(map[*peer]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Handler returns the relay routes: /ws for peers and /healthz.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleConn)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

// Peers returns the number of connected peers.
func (s *Server) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func (s *Server) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[relay] upgrade failed: %v", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer conn.Close()

	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		s.logger.Printf("[relay] read hello: %v", err)
		return
	}
	if hello.Type != TypeHello {
		s.logger.Printf("[relay] expected hello, got %q", hello.Type)
		return
	}
	p := &peer{id: hello.Client, conn: conn, send: make(chan Message, sendBuffer)}
	go s.write(ctx, cancel, p)

	s.register(p)
	defer s.unregister(p)

	deliveries, err := s.log.Subscribe(ctx, hello.Resume)
	if err != nil {
		s.logger.Printf("[relay] subscribe %s from %d: %v", p.id, hello.Resume, err)
		return
	}
	go s.forward(ctx, p, deliveries)
	s.logger.Printf("[relay] peer %s connected, resume %d", p.id, hello.Resume)

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("[relay] peer %s read: %v", p.id, err)
			}
			break
		}
		switch m.Type {
		case TypePublish:
			if err := s.log.Publish(ctx, m.Payload); err != nil {
				s.logger.Printf("[relay] peer %s publish: %v", p.id, err)
			}
		case TypePreview:
			s.broadcast(p, Message{Type: TypePreview, Client: p.id, Payload: m.Payload})
		default:
			s.logger.Printf("[relay] peer %s sent unknown message type %q", p.id, m.Type)
		}
	}
	s.logger.Printf("[relay] peer %s disconnected", p.id)
}

// forward streams the log to one peer, waiting for room in its queue.
func (s *Server) forward(ctx context.Context, p *peer, deliveries <-chan transport.Delivery) {
	for d := range deliveries {
		m := Message{Type: TypeUpdate, Serial: d.Serial, MaxSerial: d.MaxSerial, Payload: d.Payload}
		select {
		case p.send <- m:
		case <-ctx.Done():
			return
		}
	}
	if ctx.Err() == nil {
		s.logger.Printf("[relay] log subscription for peer %s ended", p.id)
		_ = p.conn.Close()
	}
}

// write is the only goroutine writing to the peer's socket.
func (s *Server) write(ctx context.Context, cancel context.CancelFunc, p *peer) {
	for {
		select {
		case m := <-p.send:
			if err := p.conn.WriteJSON(m); err != nil {
				s.logger.Printf("[relay] peer %s write: %v", p.id, err)
				cancel()
				_ = p.conn.Close()
				return
			}
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
	}
}

func (s *Server) broadcast(from *peer, m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		if p == from {
			continue
		}
		select {
		case p.send <- m:
		default:
		}
	}
}

func (s *Server) register(p *peer) {
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) unregister(p *peer) {
	s.mu.Lock()
	delete(s.peers, p)
	s.mu.Unlock()
}

// closePeers drops every connection; hijacked sockets outlive http.Server.Shutdown.
func (s *Server) closePeers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		_ = p.conn.Close()
	}
}

// ListenAndServe serves the relay on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	select {
	case err := <-errs:
		return fmt.Errorf("wsrelay: serve %s: %w", addr, err)
	case <-ctx.Done():
		_ = srv.Shutdown(context.WithoutCancel(ctx))
		s.closePeers()
		return ctx.Err()
	}
}
