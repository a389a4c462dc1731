package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS grid_snapshot (
    replica_id TEXT PRIMARY KEY,
    width      INTEGER NOT NULL,
    height     INTEGER NOT NULL,
    cells      BYTEA NOT NULL,
    clock      BIGINT NOT NULL,
    serial     BIGINT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists snapshots in a PostgreSQL table shared by many
// replicas, one row per replica id.
type PostgresStore struct {
	pool      *pgxpool.Pool
	replicaID string
}

// NewPostgresStore ensures the schema and returns a store for replicaID.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, replicaID string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("snapshot: pool is nil")
	}
	if replicaID == "" {
		return nil, fmt.Errorf("snapshot: replica id is empty")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("snapshot: ensure postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool, replicaID: replicaID}, nil
}

// Load reads this replica's row.
func (s *PostgresStore) Load(ctx context.Context) (*State, error) {
	var (
		st            State
		blob          []byte
		clock, serial int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT width, height, cells, clock, serial FROM grid_snapshot WHERE replica_id = $1`,
		s.replicaID).Scan(&st.Width, &st.Height, &blob, &clock, &serial)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if st.Cells, err = DecodeCells(blob); err != nil {
		return nil, err
	}
	st.Clock, st.Serial = uint64(clock), uint64(serial)
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &st, nil
}

// Save upserts this replica's row.
func (s *PostgresStore) Save(ctx context.Context, state *State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	if state.Clock > math.MaxInt64 || state.Serial > math.MaxInt64 {
		return fmt.Errorf("snapshot: clock %d or serial %d exceeds BIGINT", state.Clock, state.Serial)
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO grid_snapshot(replica_id, width, height, cells, clock, serial, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (replica_id) DO UPDATE SET
			width = EXCLUDED.width, height = EXCLUDED.height, cells = EXCLUDED.cells,
			clock = EXCLUDED.clock, serial = EXCLUDED.serial, updated_at = EXCLUDED.updated_at`,
		s.replicaID, state.Width, state.Height, EncodeCells(state.Cells), int64(state.Clock), int64(state.Serial))
	return err
}

var _ Store = (*PostgresStore)(nil)
