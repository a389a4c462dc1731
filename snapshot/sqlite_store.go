package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
)

// SQLiteStore persists the snapshot as a single row in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed Store. It ensures the snapshot schema
// exists in the provided database.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("snapshot: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("snapshot: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads the snapshot row.
func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		st            State
		blob          []byte
		clock, serial int64
	)
	row := s.db.QueryRowContext(ctx, `SELECT width, height, cells, clock, serial FROM grid_snapshot WHERE id = 1`)
	if err := row.Scan(&st.Width, &st.Height, &blob, &clock, &serial); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	cells, err := DecodeCells(blob)
	if err != nil {
		return nil, err
	}
	st.Cells, st.Clock, st.Serial = cells, uint64(clock), uint64(serial)
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &st, nil
}

// Save overwrites the snapshot row inside a transaction.
func (s *SQLiteStore) Save(ctx context.Context, state *State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	if state.Clock > math.MaxInt64 || state.Serial > math.MaxInt64 {
		return fmt.Errorf("snapshot: clock %d or serial %d exceeds SQLite INTEGER", state.Clock, state.Serial)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO grid_snapshot(id, width, height, cells, clock, serial, updated_at)
		VALUES(1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		state.Width, state.Height, EncodeCells(state.Cells), int64(state.Clock), int64(state.Serial)); err != nil {
		return err
	}
	return tx.Commit()
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
