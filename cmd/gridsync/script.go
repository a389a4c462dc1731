package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/viant/gridsync/export"
	"github.com/viant/gridsync/grid"
	"github.com/viant/gridsync/replica"
	"github.com/viant/gridsync/snapshot"
)

// step is one parsed script line: an event for the replica, a pause, or quit.
type step struct {
	event replica.Event
	pause time.Duration
	quit  bool
}

// parseLine understands:
//
//	press X Y | move X Y | release | cancel
//	show | stats | export FILE.pdf | merge FILE.db
//	sleep DURATION | quit
//
// Blank lines and lines starting with # yield the zero step.
func parseLine(line string, out io.Writer) (step, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return step{}, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "press", "move":
		if len(args) != 2 {
			return step{}, fmt.Errorf("%s needs X Y", cmd)
		}
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if errX != nil || errY != nil {
			return step{}, fmt.Errorf("%s: invalid coordinates %q %q", cmd, args[0], args[1])
		}
		if cmd == "press" {
			return step{event: replica.LocalPress{X: x, Y: y}}, nil
		}
		return step{event: replica.LocalMove{X: x, Y: y}}, nil
	case "release":
		return step{event: replica.LocalRelease{}}, nil
	case "cancel":
		return step{event: replica.LocalCancel{}}, nil
	case "show":
		return step{event: replica.Func(func(r *replica.Replica) {
			fmt.Fprint(out, render(r))
		})}, nil
	case "stats":
		return step{event: replica.Func(func(r *replica.Replica) {
			fmt.Fprintf(out, "serial=%d clock=%d %+v\n", r.Serial(), r.Clock(), r.Stats())
		})}, nil
	case "export":
		if len(args) != 1 {
			return step{}, fmt.Errorf("export needs a file name")
		}
		path := args[0]
		return step{event: replica.Func(func(r *replica.Replica) {
			if err := export.PDF(path, source(r)); err != nil {
				fmt.Fprintf(out, "export failed: %v\n", err)
				return
			}
			fmt.Fprintf(out, "exported %s\n", path)
		})}, nil
	case "merge":
		if len(args) != 1 {
			return step{}, fmt.Errorf("merge needs a bolt snapshot file")
		}
		path := args[0]
		return step{event: replica.Func(func(r *replica.Replica) {
			if err := mergeFile(r, path); err != nil {
				fmt.Fprintf(out, "merge failed: %v\n", err)
				return
			}
			fmt.Fprintf(out, "merged %s\n", path)
		})}, nil
	case "sleep":
		if len(args) != 1 {
			return step{}, fmt.Errorf("sleep needs a duration")
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return step{}, fmt.Errorf("sleep: %w", err)
		}
		return step{pause: d}, nil
	case "quit", "exit":
		return step{quit: true}, nil
	}
	return step{}, fmt.Errorf("unknown command %q", cmd)
}

// runScript feeds script lines from in to the replica until EOF, quit or ctx
// is done. Bad lines are reported on out and skipped.
func runScript(ctx context.Context, in io.Reader, out io.Writer, input chan<- replica.Event) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for n := 1; ; n++ {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}
		s, err := parseLine(line, out)
		if err != nil {
			fmt.Fprintf(out, "line %d: %v\n", n, err)
			continue
		}
		switch {
		case s.quit:
			return nil
		case s.pause > 0:
			select {
			case <-time.After(s.pause):
			case <-ctx.Done():
				return ctx.Err()
			}
		case s.event != nil:
			select {
			case input <- s.event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// mergeFile folds the state saved in another peer's bolt snapshot file into r.
func mergeFile(r *replica.Replica, path string) error {
	store, err := snapshot.OpenBoltStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	st, err := store.Load(context.Background())
	if err != nil {
		return err
	}
	return r.MergeSnapshot(st)
}

// render draws the displayed grid, one row per line.
func render(r *replica.Replica) string {
	g := r.Grid()
	var sb strings.Builder
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			sb.WriteByte(glyph(r.Display(y*g.Width() + x)))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

const glyphs = "0123456789abcdefghijklmnopqrstuvwxyz"

func glyph(m grid.Mark) byte {
	switch {
	case m == grid.Empty:
		return '.'
	case m == 1:
		return '#'
	}
	return glyphs[int(m)%len(glyphs)]
}

func source(r *replica.Replica) export.Source {
	g := r.Grid()
	return export.Source{
		Title:  "gridsync " + r.ID(),
		Width:  g.Width(),
		Height: g.Height(),
		Kind:   r.Kind(),
		Value:  r.Display,
	}
}

// lockedWriter lets the script reader and the replica loop share one output.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
