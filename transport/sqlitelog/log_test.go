package sqlitelog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/viant/gridsync/engine"
)

func TestLog_PublishAssignsSerials(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(engine.MemoryDSN)
	if err != nil {
		t.Fatalf("engine.Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	board, err := New(ctx, db, Config{BoardID: "b1"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	other, err := New(ctx, db, Config{BoardID: "b2"})
	if err != nil {
		t.Fatalf("New(b2) failed: %v", err)
	}
	for _, p := range []string{"one", "two", "three"} {
		if err := board.Publish(ctx, []byte(p)); err != nil {
			t.Fatalf("Publish(%s) failed: %v", p, err)
		}
	}
	if err := other.Publish(ctx, []byte("solo")); err != nil {
		t.Fatalf("Publish(b2) failed: %v", err)
	}

	if max, err := board.MaxSerial(ctx); err != nil || max != 3 {
		t.Fatalf("MaxSerial(b1) = %d,%v; want 3", max, err)
	}
	if max, err := other.MaxSerial(ctx); err != nil || max != 1 {
		t.Fatalf("MaxSerial(b2) = %d,%v; want 1", max, err)
	}

	got, err := board.Fetch(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Fetch(after 1) returned %d entries, want 2", len(got))
	}
	if string(got[0].Payload) != "two" || got[0].Serial != 2 || got[1].Serial != 3 || got[1].MaxSerial != 3 {
		t.Fatalf("Fetch returned %+v", got)
	}

	var inbox int
	if err := db.QueryRow(`SELECT COUNT(*) FROM grid_log_inbox`).Scan(&inbox); err != nil {
		t.Fatalf("count inbox failed: %v", err)
	}
	if inbox != 0 {
		t.Fatalf("inbox holds %d rows after publish, want 0", inbox)
	}
}

// TestLog_SharedFileSubscribe verifies two handles on one database file see a
// single serial sequence, as two local processes would.
func TestLog_SharedFileSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	path := filepath.Join(t.TempDir(), "log.sqlite")

	dbA, err := engine.Open(path)
	if err != nil {
		t.Fatalf("engine.Open(A) failed: %v", err)
	}
	defer dbA.Close()
	dbB, err := engine.Open(path)
	if err != nil {
		t.Fatalf("engine.Open(B) failed: %v", err)
	}
	defer dbB.Close()

	a, err := New(ctx, dbA, Config{PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("New(A) failed: %v", err)
	}
	b, err := New(ctx, dbB, Config{PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("New(B) failed: %v", err)
	}

	if err := a.Publish(ctx, []byte("from-a")); err != nil {
		t.Fatalf("Publish(A) failed: %v", err)
	}
	ch, err := b.Subscribe(ctx, 0)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := b.Publish(ctx, []byte("from-b")); err != nil {
		t.Fatalf("Publish(B) failed: %v", err)
	}

	want := []string{"from-a", "from-b"}
	for i, w := range want {
		select {
		case d := <-ch:
			if string(d.Payload) != w || d.Serial != uint64(i+1) {
				t.Fatalf("delivery %d = %q serial %d; want %q serial %d", i, d.Payload, d.Serial, w, i+1)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for delivery %d", i)
		}
	}
}
