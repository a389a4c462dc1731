// Command gridsync runs a relay or a scripted peer of a replicated grid.
//
//	gridsync relay -addr :8090 -log relay.sqlite -advertise
//	gridsync peer -relay ws://localhost:8090/ws -snapshot bolt -snapshot-path peer.db < strokes.txt
//	gridsync peer -log shared.sqlite -snapshot sqlite -snapshot-path peer.sqlite
//
// Every flag can also come from a YAML file passed with -config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s relay|peer [flags]\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "relay":
		err = runRelay(ctx, os.Args[2:])
	case "peer":
		err = runPeer(ctx, os.Args[2:], os.Stdin, os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		log.Fatal(err)
	}
}
