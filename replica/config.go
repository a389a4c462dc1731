package replica

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/viant/gridsync/grid"
	"github.com/viant/gridsync/snapshot"
	"github.com/viant/gridsync/stroke"
	"github.com/viant/gridsync/transport"
)

// Config describes the grid a replica takes part in.
type Config struct {
	// ID identifies the replica in logs; a random UUID when empty.
	ID string

	// Width and Height are the grid dimensions shared by every peer.
	Width  int
	Height int

	// Kind is the deployment's mark variant; Bool when zero.
	Kind grid.Kind

	// Paint chooses stroke values; Toggle(1) when nil.
	Paint stroke.PaintFunc
}

func (c *Config) init() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("replica: invalid grid dimensions %dx%d", c.Width, c.Height)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Kind == 0 {
		c.Kind = grid.Bool
	}
	if c.Paint == nil {
		c.Paint = stroke.Toggle(1)
	}
	on := c.Paint(grid.Empty)
	for _, m := range []grid.Mark{on, c.Paint(on)} {
		if !c.Kind.Valid(m) {
			return fmt.Errorf("replica: paint value %d invalid for %v grid", m, c.Kind)
		}
	}
	return nil
}

// Option customises a Replica.
type Option func(r *Replica)

// WithStore persists committed state to s; an in-memory store is used otherwise.
func WithStore(s snapshot.Store) Option {
	return func(r *Replica) { r.store = s }
}

// WithPreview enables the ephemeral preview channel.
func WithPreview(p transport.Preview) Option {
	return func(r *Replica) { r.preview = p }
}

// WithLogger sets the logger; log.Default() otherwise.
func WithLogger(l *log.Logger) Option {
	return func(r *Replica) { r.logger = l }
}

// WithInSync registers a callback invoked when the replica catches up with
// the log, except on the first catch-up after start.
func WithInSync(fn func(serial uint64)) Option {
	return func(r *Replica) { r.onSync = fn }
}
