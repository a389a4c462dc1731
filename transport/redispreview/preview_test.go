package redispreview

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPreview_RoundTrip(t *testing.T) {
	addr := os.Getenv("GRIDSYNC_REDIS_ADDR")
	if addr == "" {
		t.Skip("GRIDSYNC_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := Connect(ctx, addr)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	board := "test-" + uuid.NewString()
	sender, receiver := New(client, board, nil), New(client, board, nil)
	own, err := sender.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe(sender) failed: %v", err)
	}
	peer, err := receiver.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe(receiver) failed: %v", err)
	}
	if err := sender.Send(ctx, []byte{7, 1, 5}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	select {
	case got := <-peer:
		if string(got) != string([]byte{7, 1, 5}) {
			t.Fatalf("payload = %v", got)
		}
	case <-ctx.Done():
		t.Fatalf("preview not received")
	}
	select {
	case got := <-own:
		t.Fatalf("sender received its own preview %v", got)
	case <-time.After(200 * time.Millisecond):
	}
}
