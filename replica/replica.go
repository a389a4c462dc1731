package replica

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/viant/gridsync/clock"
	"github.com/viant/gridsync/grid"
	"github.com/viant/gridsync/snapshot"
	"github.com/viant/gridsync/stroke"
	"github.com/viant/gridsync/transport"
	"github.com/viant/gridsync/wire"
)

// Stats counts what the replica did with its inputs.
type Stats struct {
	Applied      int // cell writes that replaced a register
	Tied         int // cell writes resolved by tie-break
	Stale        int // cell writes discarded as older
	Dropped      int // targets outside the grid
	Rejected     int // whole updates rejected (corrupt payload, zero timestamp, invalid mark)
	Skipped      int // deliveries at or below the applied serial
	Previews     int // previews accepted into the overlay
	Published    int // strokes published
	Saves        int // successful snapshot saves
	SaveFailures int
}

// Replica is one peer's state. It is not safe for concurrent use: drive it
// with Step from a single goroutine, or with Run.
type Replica struct {
	cfg     Config
	grid    *grid.Grid
	overlay *grid.Grid
	clock   *clock.Lamport
	stroke  *stroke.Buffer
	serial  uint64
	synced  bool
	pending bool // committed state not yet saved

	log     transport.Log
	preview transport.Preview
	store   snapshot.Store
	onSync  func(serial uint64)
	logger  *log.Logger
	stats   Stats
}

// New creates a replica publishing to l and seeds it from the snapshot store.
// A missing, unreadable or mismatched snapshot falls back to the empty grid.
func New(ctx context.Context, cfg Config, l transport.Log, opts ...Option) (*Replica, error) {
	if err := cfg.init(); err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("replica: log is nil")
	}
	g, err := grid.New(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	overlay, err := grid.New(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	r := &Replica{cfg: cfg, grid: g, overlay: overlay, clock: clock.New(0), log: l}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.store == nil {
		r.store = &snapshot.MemoryStore{}
	}
	r.restore(ctx)
	r.stroke = stroke.New(r.grid, r.clock, cfg.Paint)
	return r, nil
}

func (r *Replica) restore(ctx context.Context) {
	st, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		return
	case err != nil:
		r.logger.Printf("[replica %s] load snapshot failed, starting empty: %v", r.cfg.ID, err)
		return
	case st.Width != r.cfg.Width || st.Height != r.cfg.Height:
		r.logger.Printf("[replica %s] snapshot is %dx%d, grid is %dx%d; starting empty",
			r.cfg.ID, st.Width, st.Height, r.cfg.Width, r.cfg.Height)
		return
	}
	if err := checkMarks(r.cfg.Kind, st.Cells); err != nil {
		r.logger.Printf("[replica %s] snapshot does not fit the grid, starting empty: %v", r.cfg.ID, err)
		return
	}
	if err := r.grid.Restore(st.Cells); err != nil {
		r.logger.Printf("[replica %s] restore snapshot failed, starting empty: %v", r.cfg.ID, err)
		return
	}
	r.clock = clock.New(st.Clock)
	r.serial = st.Serial
	r.logger.Printf("[replica %s] restored snapshot at serial %d, clock %d", r.cfg.ID, st.Serial, st.Clock)
}

// MergeSnapshot folds another replica's committed state into this one register
// by register. The serial is unchanged; the merged state is saved at the next
// catch-up or Flush.
func (r *Replica) MergeSnapshot(st *snapshot.State) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("replica: merge: %w", err)
	}
	if err := checkMarks(r.cfg.Kind, st.Cells); err != nil {
		return fmt.Errorf("replica: merge: %w", err)
	}
	other, err := grid.New(st.Width, st.Height)
	if err != nil {
		return fmt.Errorf("replica: merge: %w", err)
	}
	if err := other.Restore(st.Cells); err != nil {
		return fmt.Errorf("replica: merge: %w", err)
	}
	if err := r.grid.Merge(other); err != nil {
		return fmt.Errorf("replica: merge: %w", err)
	}
	r.clock.Observe(st.Clock)
	for offset := 0; offset < r.grid.Len(); offset++ {
		if r.overlay.Cell(offset).Timestamp <= r.grid.Cell(offset).Timestamp {
			r.overlay.Reset(offset)
		}
	}
	r.pending = true
	r.logger.Printf("[replica %s] merged %dx%d snapshot at clock %d", r.cfg.ID, st.Width, st.Height, st.Clock)
	return nil
}

func checkMarks(k grid.Kind, cells []grid.Cell) error {
	for i, c := range cells {
		if !k.Valid(c.Value) {
			return fmt.Errorf("cell %d: mark %d invalid for %v grid", i, c.Value, k)
		}
	}
	return nil
}

// ID returns the replica id.
func (r *Replica) ID() string { return r.cfg.ID }

// Kind returns the deployment's mark kind.
func (r *Replica) Kind() grid.Kind { return r.cfg.Kind }

// Grid returns the committed grid. Callers must not mutate it.
func (r *Replica) Grid() *grid.Grid { return r.grid }

// Clock returns the current logical clock value.
func (r *Replica) Clock() uint64 { return r.clock.Now() }

// Serial returns the serial of the last applied authoritative entry; it is
// the resume point for the log subscription.
func (r *Replica) Serial() uint64 { return r.serial }

// Stats returns a copy of the counters.
func (r *Replica) Stats() Stats { return r.stats }

// Stroking reports whether a local stroke is open.
func (r *Replica) Stroking() bool { return r.stroke.Active() }

// Display returns the value to draw at offset: the local stroke's value while
// the cell is part of it, else a peer's preview newer than the committed
// register, else the committed value.
func (r *Replica) Display(offset int) grid.Mark {
	if v, ok := r.stroke.Touched(offset); ok {
		return v
	}
	committed := r.grid.Cell(offset)
	if o := r.overlay.Cell(offset); o.Timestamp > committed.Timestamp {
		return o.Value
	}
	return committed.Value
}

// Snapshot returns a copy of the committed state.
func (r *Replica) Snapshot() *snapshot.State {
	return &snapshot.State{
		Width:  r.grid.Width(),
		Height: r.grid.Height(),
		Cells:  r.grid.Cells(),
		Clock:  r.clock.Now(),
		Serial: r.serial,
	}
}

// Step applies one event.
func (r *Replica) Step(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case LocalPress:
		return r.press(ctx, e.X, e.Y)
	case LocalMove:
		return r.move(ctx, e.X, e.Y)
	case LocalRelease:
		return r.release(ctx)
	case LocalCancel:
		return r.cancel(ctx)
	case AuthoritativeUpdate:
		r.applyAuthoritative(ctx, e.Delivery)
		return nil
	case PreviewUpdate:
		r.applyPreview(e.Payload)
		return nil
	case Func:
		e(r)
		return nil
	case nil:
		return fmt.Errorf("replica: nil event")
	}
	return fmt.Errorf("replica: unsupported event %T", ev)
}

func (r *Replica) press(ctx context.Context, x, y int) error {
	offset, err := r.grid.Offset(x, y)
	if err != nil {
		return nil // presses outside the grid are not strokes
	}
	p, err := r.stroke.Press(offset)
	if err != nil {
		return err
	}
	r.sendPreview(ctx, p)
	return nil
}

func (r *Replica) move(ctx context.Context, x, y int) error {
	if !r.stroke.Active() {
		return nil
	}
	offset, err := r.grid.Offset(x, y)
	if err != nil {
		return nil
	}
	p, ok, err := r.stroke.Move(offset)
	if err != nil || !ok {
		return err
	}
	r.sendPreview(ctx, p)
	return nil
}

func (r *Replica) release(ctx context.Context) error {
	if !r.stroke.Active() {
		return nil
	}
	u, err := r.stroke.Release()
	if err != nil {
		return err
	}
	return r.publish(ctx, u)
}

func (r *Replica) cancel(ctx context.Context) error {
	if !r.stroke.Active() {
		return nil
	}
	u, ok, err := r.stroke.Cancel()
	if err != nil || !ok {
		return err
	}
	return r.publish(ctx, u)
}

// publish sends the stroke to the log and keeps it visible in the overlay
// until its own delivery commits it.
func (r *Replica) publish(ctx context.Context, u wire.Update) error {
	for _, t := range u.Targets {
		r.overlay.Apply(int(t), u.Value, u.Timestamp)
	}
	if err := r.log.Publish(ctx, wire.EncodeUpdate(u)); err != nil {
		return fmt.Errorf("replica: publish stroke ts %d: %w", u.Timestamp, err)
	}
	r.stats.Published++
	return nil
}

func (r *Replica) sendPreview(ctx context.Context, p wire.Preview) {
	if r.preview == nil {
		return
	}
	if err := r.preview.Send(ctx, wire.EncodePreview(p)); err != nil {
		r.logger.Printf("[replica %s] send preview: %v", r.cfg.ID, err)
	}
}

func (r *Replica) applyPreview(payload []byte) {
	p, err := wire.DecodePreview(payload)
	if err != nil {
		r.logger.Printf("[replica %s] drop preview: %v", r.cfg.ID, err)
		return
	}
	offset := int(p.Offset)
	if !r.grid.Contains(offset) || !r.cfg.Kind.Valid(p.Value) {
		return
	}
	if p.Timestamp <= r.grid.Cell(offset).Timestamp {
		return // already superseded by committed state
	}
	r.overlay.Apply(offset, p.Value, p.Timestamp)
	r.stats.Previews++
}

func (r *Replica) applyAuthoritative(ctx context.Context, d transport.Delivery) {
	if d.Serial <= r.serial {
		r.stats.Skipped++
		return
	}
	r.serial = d.Serial
	r.pending = true

	if u, err := r.decode(d.Payload); err != nil {
		r.stats.Rejected++
		r.logger.Printf("[replica %s] reject update at serial %d: %v", r.cfg.ID, d.Serial, err)
	} else {
		r.clock.Observe(u.Timestamp)
		for _, t := range u.Targets {
			offset := int(t)
			switch r.grid.Apply(offset, u.Value, u.Timestamp) {
			case grid.Applied:
				r.stats.Applied++
			case grid.Tied:
				r.stats.Tied++
			case grid.Stale:
				r.stats.Stale++
			case grid.Dropped:
				r.stats.Dropped++
				continue
			}
			if r.overlay.Cell(offset).Timestamp <= r.grid.Cell(offset).Timestamp {
				r.overlay.Reset(offset)
			}
		}
	}

	if d.Serial >= d.MaxSerial {
		r.caughtUp(ctx)
	}
}

func (r *Replica) decode(payload []byte) (wire.Update, error) {
	u, err := wire.DecodeUpdate(payload)
	if err != nil {
		return wire.Update{}, err
	}
	if !r.cfg.Kind.Valid(u.Value) {
		return wire.Update{}, fmt.Errorf("replica: mark %d invalid for %v grid", u.Value, r.cfg.Kind)
	}
	return u, nil
}

func (r *Replica) caughtUp(ctx context.Context) {
	if r.synced {
		if r.onSync != nil {
			r.onSync(r.serial)
		} else {
			r.logger.Printf("[replica %s] in sync at serial %d", r.cfg.ID, r.serial)
		}
	}
	r.synced = true
	if err := r.Flush(ctx); err != nil {
		r.logger.Printf("[replica %s] save snapshot at serial %d failed, retrying at next catch-up: %v", r.cfg.ID, r.serial, err)
	}
}

// Flush saves the committed state if it changed since the last save.
func (r *Replica) Flush(ctx context.Context) error {
	if !r.pending {
		return nil
	}
	if err := r.store.Save(ctx, r.Snapshot()); err != nil {
		r.stats.SaveFailures++
		return err
	}
	r.stats.Saves++
	r.pending = false
	return nil
}
