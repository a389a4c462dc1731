package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/viant/gridsync/discovery"
	"github.com/viant/gridsync/engine"
	"github.com/viant/gridsync/transport"
	"github.com/viant/gridsync/transport/memlog"
	"github.com/viant/gridsync/transport/sqlitelog"
	"github.com/viant/gridsync/transport/wsrelay"
)

func runRelay(ctx context.Context, args []string) error {
	cfg, err := parseArgs("relay", args, func(fs *flag.FlagSet, cfg *Config) {
		fs.StringVar(&cfg.Relay.Addr, "addr", cfg.Relay.Addr, "listen address")
		fs.StringVar(&cfg.Relay.Log, "log", cfg.Relay.Log, "SQLite log file; in-memory when empty")
		fs.BoolVar(&cfg.Relay.Advertise, "advertise", cfg.Relay.Advertise, "advertise the relay over mDNS")
	})
	if err != nil {
		return err
	}

	var l transport.Log = memlog.New()
	if cfg.Relay.Log != "" {
		db, err := engine.Open(cfg.Relay.Log)
		if err != nil {
			return fmt.Errorf("relay: open log %s: %w", cfg.Relay.Log, err)
		}
		defer db.Close()
		if l, err = sqlitelog.New(ctx, db, sqlitelog.Config{BoardID: cfg.Board}); err != nil {
			return err
		}
	}

	if cfg.Relay.Advertise {
		port, err := listenPort(cfg.Relay.Addr)
		if err != nil {
			return err
		}
		server, err := discovery.Advertise(port, cfg.Board)
		if err != nil {
			return err
		}
		defer server.Shutdown()
		log.Printf("[relay] advertising board %s on %s:%d", cfg.Board, discovery.LocalIPv4(), port)
	}

	log.Printf("[relay] board %s listening on %s", cfg.Board, cfg.Relay.Addr)
	return wsrelay.NewServer(l).ListenAndServe(ctx, cfg.Relay.Addr)
}

func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("relay: address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("relay: address %q needs an explicit port", addr)
	}
	return port, nil
}
