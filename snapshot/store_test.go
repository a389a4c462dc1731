package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/viant/gridsync/engine"
	"github.com/viant/gridsync/grid"
)

func sampleState() *State {
	return &State{
		Width:  2,
		Height: 2,
		Cells:  []grid.Cell{{Value: 1, Timestamp: 3}, {}, {Value: 1, Timestamp: 9}, {Value: 0, Timestamp: 4}},
		Clock:  9,
		Serial: 10,
	}
}

func assertState(t *testing.T, got, want *State) {
	t.Helper()
	if got.Width != want.Width || got.Height != want.Height || got.Clock != want.Clock || got.Serial != want.Serial {
		t.Fatalf("state = %+v, want %+v", got, want)
	}
	for i := range want.Cells {
		if got.Cells[i] != want.Cells[i] {
			t.Fatalf("cell %d = %+v, want %+v", i, got.Cells[i], want.Cells[i])
		}
	}
}

// exerciseStore runs the Load/Save contract shared by every backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on empty store err = %v, want ErrNotFound", err)
	}
	want := sampleState()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertState(t, got, want)

	// overwrite
	want.Cells[1] = grid.Cell{Value: 1, Timestamp: 11}
	want.Clock, want.Serial = 11, 12
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	assertState(t, got, want)

	if err := s.Save(ctx, &State{Width: 2, Height: 2}); err == nil {
		t.Fatalf("Save accepted a state with missing cells")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, &MemoryStore{})
}

func TestSQLiteStore(t *testing.T) {
	db, err := engine.Open(engine.MemoryDSN)
	if err != nil {
		t.Fatalf("engine.Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	exerciseStore(t, store)
}

// TestSQLiteStore_Reopen verifies the snapshot survives closing the database.
func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.sqlite")
	db, err := engine.Open(path)
	if err != nil {
		t.Fatalf("engine.Open failed: %v", err)
	}
	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Save(ctx, sampleState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	db.Close()

	db, err = engine.Open(path)
	if err != nil {
		t.Fatalf("engine.Open (reopen) failed: %v", err)
	}
	defer db.Close()
	store, err = NewSQLiteStore(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLiteStore (reopen) failed: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	assertState(t, got, sampleState())
}

func TestBoltStore(t *testing.T) {
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "snapshot.bolt"))
	if err != nil {
		t.Fatalf("OpenBoltStore failed: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("GRIDSYNC_DATABASE_URL")
	if url == "" {
		t.Skip("skipping: GRIDSYNC_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New failed: %v", err)
	}
	defer pool.Close()
	replicaID := "test-" + filepath.Base(t.TempDir())
	store, err := NewPostgresStore(ctx, pool, replicaID)
	if err != nil {
		t.Fatalf("NewPostgresStore failed: %v", err)
	}
	defer func() { _, _ = pool.Exec(ctx, `DELETE FROM grid_snapshot WHERE replica_id = $1`, replicaID) }()
	exerciseStore(t, store)
}
