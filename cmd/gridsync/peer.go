package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viant/gridsync/discovery"
	"github.com/viant/gridsync/engine"
	"github.com/viant/gridsync/grid"
	"github.com/viant/gridsync/replica"
	"github.com/viant/gridsync/snapshot"
	"github.com/viant/gridsync/transport"
	"github.com/viant/gridsync/transport/redispreview"
	"github.com/viant/gridsync/transport/sqlitelog"
	"github.com/viant/gridsync/transport/wsrelay"
)

const browseTimeout = 3 * time.Second

func runPeer(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	var linger time.Duration
	cfg, err := parseArgs("peer", args, func(fs *flag.FlagSet, cfg *Config) {
		fs.StringVar(&cfg.Peer.ID, "id", cfg.Peer.ID, "replica id; the host name when empty")
		fs.StringVar(&cfg.Peer.Relay, "relay", cfg.Peer.Relay, `relay URL, or "mdns" to discover one`)
		fs.StringVar(&cfg.Peer.Log, "log", cfg.Peer.Log, "SQLite log file shared with local peers")
		fs.StringVar(&cfg.Peer.Redis, "redis", cfg.Peer.Redis, "Redis address for previews")
		fs.StringVar(&cfg.Peer.Snapshot.Backend, "snapshot", cfg.Peer.Snapshot.Backend, "snapshot backend: memory, sqlite, bolt or postgres")
		fs.StringVar(&cfg.Peer.Snapshot.Path, "snapshot-path", cfg.Peer.Snapshot.Path, "snapshot file for sqlite and bolt")
		fs.StringVar(&cfg.Peer.Snapshot.DSN, "snapshot-dsn", cfg.Peer.Snapshot.DSN, "PostgreSQL URL for the postgres backend")
		fs.DurationVar(&linger, "linger", time.Second, "time to keep syncing after the script ends")
	})
	if err != nil {
		return err
	}
	out = &lockedWriter{w: out}
	if cfg.Peer.ID == "" {
		if cfg.Peer.ID, err = os.Hostname(); err != nil {
			return fmt.Errorf("peer: hostname: %w", err)
		}
	}

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	l, preview, err := openTransport(ctx, cfg, &closers)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, &closers)
	if err != nil {
		return err
	}

	kind, _ := grid.ParseKind(cfg.Kind)
	opts := []replica.Option{replica.WithStore(store), replica.WithInSync(func(serial uint64) {
		fmt.Fprintf(out, "in sync at serial %d\n", serial)
	})}
	if preview != nil {
		opts = append(opts, replica.WithPreview(preview))
	}
	r, err := replica.New(ctx, replica.Config{
		ID:     cfg.Peer.ID,
		Width:  cfg.Width,
		Height: cfg.Height,
		Kind:   kind,
		Paint:  cfg.paint(),
	}, l, opts...)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	input := make(chan replica.Event)
	done := make(chan error, 1)
	go func() { done <- r.Run(runCtx, input) }()

	scriptErr := runScript(runCtx, in, out, input)
	if scriptErr == nil {
		select {
		case <-time.After(linger):
		case <-ctx.Done():
		}
	}
	cancel()
	err = <-done
	switch {
	case scriptErr != nil && !errors.Is(scriptErr, context.Canceled):
		return scriptErr
	case errors.Is(err, context.Canceled):
		return nil
	}
	return err
}

func openTransport(ctx context.Context, cfg *Config, closers *[]func()) (transport.Log, transport.Preview, error) {
	var l transport.Log
	var preview transport.Preview
	switch {
	case cfg.Peer.Log != "":
		db, err := engine.Open(cfg.Peer.Log)
		if err != nil {
			return nil, nil, fmt.Errorf("peer: open log %s: %w", cfg.Peer.Log, err)
		}
		*closers = append(*closers, func() { _ = db.Close() })
		if l, err = sqlitelog.New(ctx, db, sqlitelog.Config{BoardID: cfg.Board}); err != nil {
			return nil, nil, err
		}
	case cfg.Peer.Relay != "":
		url := cfg.Peer.Relay
		if url == "mdns" {
			relays, err := discovery.Browse(cfg.Board, browseTimeout)
			if len(relays) == 0 {
				return nil, nil, fmt.Errorf("peer: no relay found for board %s: %v", cfg.Board, err)
			}
			url = relays[0].URL()
			log.Printf("[peer] discovered relay %s at %s", relays[0].Instance, url)
		}
		client := wsrelay.NewClient(url, wsrelay.WithClientID(cfg.Peer.ID))
		l, preview = client, client.Previews()
	default:
		return nil, nil, errors.New("peer: set -relay or -log")
	}

	if cfg.Peer.Redis != "" {
		rdb, err := redispreview.Connect(ctx, cfg.Peer.Redis)
		if err != nil {
			return nil, nil, err
		}
		*closers = append(*closers, func() { _ = rdb.Close() })
		preview = redispreview.New(rdb, cfg.Board, nil)
	}
	return l, preview, nil
}

func openStore(ctx context.Context, cfg *Config, closers *[]func()) (snapshot.Store, error) {
	sc := cfg.Peer.Snapshot
	switch sc.Backend {
	case "", "memory":
		return &snapshot.MemoryStore{}, nil
	case "sqlite":
		if sc.Path == "" {
			return nil, errors.New("peer: sqlite snapshot needs -snapshot-path")
		}
		db, err := engine.Open(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("peer: open snapshot %s: %w", sc.Path, err)
		}
		*closers = append(*closers, func() { _ = db.Close() })
		s, err := snapshot.NewSQLiteStore(ctx, db)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "bolt":
		if sc.Path == "" {
			return nil, errors.New("peer: bolt snapshot needs -snapshot-path")
		}
		s, err := snapshot.OpenBoltStore(sc.Path)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = s.Close() })
		return s, nil
	case "postgres":
		if sc.DSN == "" {
			return nil, errors.New("peer: postgres snapshot needs -snapshot-dsn or GRIDSYNC_DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("peer: connect postgres: %w", err)
		}
		*closers = append(*closers, pool.Close)
		s, err := snapshot.NewPostgresStore(ctx, pool, cfg.Board+"/"+cfg.Peer.ID)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("peer: unknown snapshot backend %q", sc.Backend)
}
