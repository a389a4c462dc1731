package snapshot

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	boltBucket = []byte("gridsync")
	boltKey    = []byte("snapshot")
)

// headerSize is width, height (4 bytes each), clock and serial (8 bytes each).
const headerSize = 24

// BoltStore persists the snapshot under one key of a bbolt database file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the bbolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("snapshot: open bolt %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot: create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error { return s.db.Close() }

// Load reads the snapshot value.
func (s *BoltStore) Load(context.Context) (*State, error) {
	var st *State
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(boltKey)
		if v == nil {
			return ErrNotFound
		}
		var err error
		st, err = decodeState(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Save replaces the snapshot value in a single update transaction.
func (s *BoltStore) Save(_ context.Context, state *State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(boltKey, encodeState(state))
	})
}

func encodeState(s *State) []byte {
	b := make([]byte, headerSize, headerSize+len(s.Cells)*cellSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(s.Width))
	binary.LittleEndian.PutUint32(b[4:], uint32(s.Height))
	binary.LittleEndian.PutUint64(b[8:], s.Clock)
	binary.LittleEndian.PutUint64(b[16:], s.Serial)
	return append(b, EncodeCells(s.Cells)...)
}

// decodeState copies out of b; bbolt values are only valid inside the tx.
func decodeState(b []byte) (*State, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("snapshot: state blob too short (%d bytes)", len(b))
	}
	cells, err := DecodeCells(b[headerSize:])
	if err != nil {
		return nil, err
	}
	st := &State{
		Width:  int(binary.LittleEndian.Uint32(b[0:])),
		Height: int(binary.LittleEndian.Uint32(b[4:])),
		Clock:  binary.LittleEndian.Uint64(b[8:]),
		Serial: binary.LittleEndian.Uint64(b[16:]),
		Cells:  cells,
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

var _ Store = (*BoltStore)(nil)
