package stroke

import (
	"errors"
	"fmt"

	"github.com/viant/gridsync/clock"
	"github.com/viant/gridsync/grid"
	"github.com/viant/gridsync/wire"
)

var (
	// ErrActive is returned by Press while a stroke is already open.
	ErrActive = errors.New("stroke: gesture already active")
	// ErrIdle is returned when moving, releasing or cancelling without a stroke.
	ErrIdle = errors.New("stroke: no active gesture")
)

// PaintFunc chooses the stroke's paint value from the value of the cell the
// gesture started on.
type PaintFunc func(current grid.Mark) grid.Mark

// Toggle paints on over empty cells and erases painted ones.
func Toggle(on grid.Mark) PaintFunc {
	return func(current grid.Mark) grid.Mark {
		if current == grid.Empty {
			return on
		}
		return grid.Empty
	}
}

// Fixed always paints m, e.g. a peer's own color.
func Fixed(m grid.Mark) PaintFunc {
	return func(grid.Mark) grid.Mark { return m }
}

// Buffer accumulates one gesture per input device.
type Buffer struct {
	grid   *grid.Grid
	clock  *clock.Lamport
	paint  PaintFunc
	active bool
	value  grid.Mark
	seen   map[uint32]struct{}
	order  []uint32
}

// New creates an idle buffer painting on g and stamping from c.
func New(g *grid.Grid, c *clock.Lamport, paint PaintFunc) *Buffer {
	if paint == nil {
		paint = Toggle(1)
	}
	return &Buffer{grid: g, clock: c, paint: paint, seen: make(map[uint32]struct{})}
}

// Active reports whether a gesture is open.
func (b *Buffer) Active() bool { return b.active }

// Value returns the paint value of the open gesture.
func (b *Buffer) Value() grid.Mark { return b.value }

// Touched reports whether offset was touched by the open gesture and, if so,
// the value it is being painted with.
func (b *Buffer) Touched(offset int) (grid.Mark, bool) {
	if !b.active || !b.grid.Contains(offset) {
		return grid.Empty, false
	}
	_, ok := b.seen[uint32(offset)]
	return b.value, ok
}

// Len returns the number of touched cells.
func (b *Buffer) Len() int { return len(b.order) }

// Press opens a gesture at offset and returns the preview for that cell.
func (b *Buffer) Press(offset int) (wire.Preview, error) {
	if b.active {
		return wire.Preview{}, ErrActive
	}
	if !b.grid.Contains(offset) {
		return wire.Preview{}, fmt.Errorf("%w: press at %d", grid.ErrOutOfRange, offset)
	}
	b.active = true
	b.value = b.paint(b.grid.Cell(offset).Value)
	p, _ := b.touch(offset)
	return p, nil
}

// Move extends the gesture to offset. It returns false, with no preview, when
// the cell is outside the grid or already touched.
func (b *Buffer) Move(offset int) (wire.Preview, bool, error) {
	if !b.active {
		return wire.Preview{}, false, ErrIdle
	}
	if !b.grid.Contains(offset) {
		return wire.Preview{}, false, nil
	}
	p, ok := b.touch(offset)
	return p, ok, nil
}

// Release commits the gesture. The returned update carries every touched cell
// and one fresh timestamp.
func (b *Buffer) Release() (wire.Update, error) {
	if !b.active {
		return wire.Update{}, ErrIdle
	}
	return b.commit(), nil
}

// Cancel aborts the gesture. A gesture that never left its first cell is
// discarded and ok is false; otherwise it is committed like Release.
func (b *Buffer) Cancel() (u wire.Update, ok bool, err error) {
	if !b.active {
		return wire.Update{}, false, ErrIdle
	}
	if len(b.order) <= 1 {
		b.reset()
		return wire.Update{}, false, nil
	}
	return b.commit(), true, nil
}

func (b *Buffer) touch(offset int) (wire.Preview, bool) {
	o := uint32(offset)
	if _, ok := b.seen[o]; ok {
		return wire.Preview{}, false
	}
	b.seen[o] = struct{}{}
	b.order = append(b.order, o)
	return wire.Preview{Offset: o, Timestamp: b.clock.Next(), Value: b.value}, true
}

func (b *Buffer) commit() wire.Update {
	u := wire.Update{
		Targets:   append([]uint32(nil), b.order...),
		Value:     b.value,
		Timestamp: b.clock.AdvanceLocal(),
	}
	b.reset()
	return u
}

func (b *Buffer) reset() {
	b.active = false
	b.value = grid.Empty
	b.order = b.order[:0]
	clear(b.seen)
}
