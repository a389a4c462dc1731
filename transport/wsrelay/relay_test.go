package wsrelay

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/viant/gridsync/transport"
	"github.com/viant/gridsync/transport/memlog"
)

var quiet = log.New(io.Discard, "", 0)

func startRelay(t *testing.T, l transport.Log) (*Server, string) {
	t.Helper()
	relay := NewServer(l, WithServerLogger(quiet))
	srv := httptest.NewServer(relay.Handler())
	t.Cleanup(srv.Close)
	return relay, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func newClient(url, id string) *Client {
	return NewClient(url, WithClientID(id), WithClientLogger(quiet), WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(20 * time.Millisecond)
	}))
}

func receive(t *testing.T, ch <-chan transport.Delivery) transport.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed")
		}
		return d
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
	return transport.Delivery{}
}

func TestRelay_PublishReachesEverySubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, url := startRelay(t, memlog.New())

	a, b := newClient(url, "a"), newClient(url, "b")
	subA, _ := a.Subscribe(ctx, 0)
	subB, _ := b.Subscribe(ctx, 0)

	if err := a.Publish(ctx, []byte("first")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := b.Publish(ctx, []byte("second")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	for name, sub := range map[string]<-chan transport.Delivery{"a": subA, "b": subB} {
		var got []string
		for i := uint64(1); i <= 2; i++ {
			d := receive(t, sub)
			if d.Serial != i {
				t.Fatalf("%s: serial %d, want %d", name, d.Serial, i)
			}
			got = append(got, string(d.Payload))
		}
		// publish order across clients is decided by the relay
		if !(got[0] == "first" && got[1] == "second") && !(got[0] == "second" && got[1] == "first") {
			t.Fatalf("%s received %v", name, got)
		}
	}
}

func TestRelay_ResumeSkipsApplied(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := memlog.New()
	for _, p := range []string{"1", "2", "3"} {
		_ = l.Publish(ctx, []byte(p))
	}
	_, url := startRelay(t, l)

	sub, _ := newClient(url, "late").Subscribe(ctx, 2)
	d := receive(t, sub)
	if d.Serial != 3 || d.MaxSerial != 3 || string(d.Payload) != "3" {
		t.Fatalf("first delivery after resume 2 = %+v", d)
	}
}

func TestRelay_PreviewFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := memlog.New()
	_ = l.Publish(ctx, []byte("seed"))
	_, url := startRelay(t, l)

	a, b := newClient(url, "a"), newClient(url, "b")
	previewsA, _ := a.Previews().Subscribe(ctx)
	previewsB, _ := b.Previews().Subscribe(ctx)
	subA, _ := a.Subscribe(ctx, 0)
	subB, _ := b.Subscribe(ctx, 0)
	// a delivery means the relay registered the peer
	receive(t, subA)
	receive(t, subB)

	if err := a.Previews().Send(ctx, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	select {
	case p := <-previewsB:
		if string(p) != string([]byte{1, 2, 3}) {
			t.Fatalf("preview payload = %v", p)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("preview not relayed")
	}
	select {
	case p := <-previewsA:
		t.Fatalf("sender received its own preview %v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClient_ReconnectResumes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := memlog.New()
	_ = l.Publish(ctx, []byte("one"))
	relay, url := startRelay(t, l)

	c := newClient(url, "flaky")
	sub, _ := c.Subscribe(ctx, 0)
	if d := receive(t, sub); d.Serial != 1 {
		t.Fatalf("serial %d, want 1", d.Serial)
	}

	relay.closePeers()
	_ = l.Publish(ctx, []byte("two"))
	d := receive(t, sub)
	if d.Serial != 2 || string(d.Payload) != "two" {
		t.Fatalf("after reconnect got %+v, want serial 2", d)
	}
	if err := c.Publish(ctx, []byte("three")); err != nil {
		t.Fatalf("Publish after reconnect failed: %v", err)
	}
	if d := receive(t, sub); d.Serial != 3 {
		t.Fatalf("serial %d, want 3", d.Serial)
	}
}

func TestPreviewSend_NotConnected(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", WithClientLogger(quiet))
	if err := c.Previews().Send(context.Background(), []byte{1}); err != ErrNotConnected {
		t.Fatalf("Send err = %v, want ErrNotConnected", err)
	}
}
