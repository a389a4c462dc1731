package replica

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/viant/gridsync/snapshot"
	"github.com/viant/gridsync/transport/memlog"
)

// query reads state on the replica's goroutine.
func query(t *testing.T, input chan<- Event, fn func(r *Replica)) {
	t.Helper()
	done := make(chan struct{})
	input <- Func(func(r *Replica) {
		fn(r)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("replica loop did not answer")
	}
}

func TestRun_TwoReplicasConverge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := memlog.New()
	bus := memlog.NewBus()
	storeB := &snapshot.MemoryStore{}
	a := newReplica(t, Config{ID: "a", Width: 4, Height: 2}, l, WithPreview(bus))
	b := newReplica(t, Config{ID: "b", Width: 4, Height: 2}, l, WithPreview(bus), WithStore(storeB))

	inA, inB := make(chan Event), make(chan Event)
	errs := make(chan error, 2)
	go func() { errs <- a.Run(ctx, inA) }()
	go func() { errs <- b.Run(ctx, inB) }()

	inA <- LocalPress{X: 0, Y: 0}
	inA <- LocalMove{X: 1, Y: 0}
	inA <- LocalMove{X: 2, Y: 0}
	inB <- LocalPress{X: 3, Y: 1}
	inB <- LocalMove{X: 2, Y: 1}
	inA <- LocalRelease{}
	inB <- LocalCancel{}

	deadline := time.Now().Add(3 * time.Second)
	for {
		var serialA, serialB uint64
		query(t, inA, func(r *Replica) { serialA = r.Serial() })
		query(t, inB, func(r *Replica) { serialB = r.Serial() })
		if serialA == 2 && serialB == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("replicas did not catch up: a=%d b=%d", serialA, serialB)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var gotA, gotB *snapshot.State
	query(t, inA, func(r *Replica) { gotA = r.Snapshot() })
	query(t, inB, func(r *Replica) { gotB = r.Snapshot() })
	for i := range gotA.Cells {
		if gotA.Cells[i] != gotB.Cells[i] {
			t.Fatalf("cell %d differs: %+v vs %+v", i, gotA.Cells[i], gotB.Cells[i])
		}
	}
	for _, offset := range []int{0, 1, 2, 6, 7} {
		if gotA.Cells[offset].Value != 1 {
			t.Fatalf("cell %d not painted: %+v", offset, gotA.Cells[offset])
		}
	}

	cancel()
	for i := 0; i < 2; i++ {
		if err := <-errs; !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	}
	saved, err := storeB.Load(context.Background())
	if err != nil || saved.Serial != 2 {
		t.Fatalf("final state not saved: %+v, %v", saved, err)
	}
}
