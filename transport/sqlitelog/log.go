package sqlitelog

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/viant/gridsync/transport"
)

const (
	// DefaultBoardID is used when Config.BoardID is empty.
	DefaultBoardID = "default"
	// DefaultPollInterval is how often subscribers check for new entries.
	DefaultPollInterval = 50 * time.Millisecond
	// DefaultBatchSize bounds the rows fetched per poll.
	DefaultBatchSize = 256
)

// Config captures the settings of a SQLite-backed log.
type Config struct {
	// BoardID selects the log within the database; each board has its own
	// serial sequence.
	BoardID string

	// Tables overrides the default table names.
	Tables Tables

	// PollInterval controls how often subscribers query for new entries.
	PollInterval time.Duration

	// BatchSize controls how many entries are fetched per poll.
	BatchSize int

	// Logger receives subscription errors; defaults to log.Default().
	Logger *log.Logger
}

// Log is an authoritative log stored in SQLite.
type Log struct {
	db     *sql.DB
	cfg    Config
	tables Tables
}

// New ensures the schema and returns a log for cfg.BoardID.
func New(ctx context.Context, db *sql.DB, cfg Config) (*Log, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlitelog: db is nil")
	}
	if cfg.BoardID == "" {
		cfg.BoardID = DefaultBoardID
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	tables := cfg.Tables.withDefaults()
	if err := EnsureSchema(ctx, db, tables); err != nil {
		return nil, err
	}
	return &Log{db: db, cfg: cfg, tables: tables}, nil
}

// Publish inserts payload into the inbox; the trigger assigns its serial.
func (l *Log) Publish(ctx context.Context, payload []byte) error {
	stmt := fmt.Sprintf(`INSERT INTO %s(board_id, payload) VALUES(?, ?)`, l.tables.Inbox)
	if _, err := l.db.ExecContext(ctx, stmt, l.cfg.BoardID, payload); err != nil {
		return fmt.Errorf("sqlitelog: publish: %w", err)
	}
	return nil
}

// MaxSerial returns the highest serial assigned on this board.
func (l *Log) MaxSerial(ctx context.Context) (uint64, error) {
	var max int64
	stmt := fmt.Sprintf(`SELECT COALESCE((SELECT last_serial FROM %s WHERE board_id = ?), 0)`, l.tables.Seq)
	if err := l.db.QueryRowContext(ctx, stmt, l.cfg.BoardID).Scan(&max); err != nil {
		return 0, err
	}
	return uint64(max), nil
}

// Fetch returns up to limit entries with serial greater than after, stamped
// with the max serial read before the rows.
func (l *Log) Fetch(ctx context.Context, after uint64, limit int) ([]transport.Delivery, error) {
	max, err := l.MaxSerial(ctx)
	if err != nil {
		return nil, err
	}
	if max <= after {
		return nil, nil
	}
	stmt := fmt.Sprintf(`SELECT serial, payload FROM %s
		WHERE board_id = ? AND serial > ? AND serial <= ?
		ORDER BY serial LIMIT ?`, l.tables.Log)
	rows, err := l.db.QueryContext(ctx, stmt, l.cfg.BoardID, int64(after), int64(max), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []transport.Delivery
	for rows.Next() {
		var (
			serial  int64
			payload []byte
		)
		if err := rows.Scan(&serial, &payload); err != nil {
			return nil, err
		}
		out = append(out, transport.Delivery{Payload: payload, Serial: uint64(serial), MaxSerial: max})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscribe polls for entries after resume until ctx is done. Query errors
// are logged and retried on the next tick.
func (l *Log) Subscribe(ctx context.Context, resume uint64) (<-chan transport.Delivery, error) {
	out := make(chan transport.Delivery)
	go func() {
		defer close(out)
		ticker := time.NewTicker(l.cfg.PollInterval)
		defer ticker.Stop()
		next := resume
		for {
			batch, err := l.Fetch(ctx, next, l.cfg.BatchSize)
			if err != nil && ctx.Err() == nil {
				l.cfg.Logger.Printf("[sqlitelog] board %s: fetch after %d: %v", l.cfg.BoardID, next, err)
			}
			for _, d := range batch {
				select {
				case out <- d:
					next = d.Serial
				case <-ctx.Done():
					return
				}
			}
			if len(batch) == l.cfg.BatchSize {
				continue
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var _ transport.Log = (*Log)(nil)
