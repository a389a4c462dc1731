package grid

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned for offsets or coordinates outside the grid.
var ErrOutOfRange = errors.New("grid: offset out of range")

// Cell is a last-writer-wins register.
type Cell struct {
	Value     Mark
	Timestamp uint64
}

// Outcome describes what a merge did to a register.
type Outcome uint8

const (
	// Applied means the incoming write was strictly newer and replaced the cell.
	Applied Outcome = iota
	// Tied means the timestamps were equal and TieBreak chose the value.
	Tied
	// Stale means the incoming write was older and was discarded.
	Stale
	// Dropped means the offset was outside the grid.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Tied:
		return "tied"
	case Stale:
		return "stale"
	case Dropped:
		return "dropped"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// Merge resolves an incoming write against a stored register and returns the
// resulting register. It has no side effects.
func Merge(c Cell, value Mark, ts uint64) (Cell, Outcome) {
	switch {
	case ts > c.Timestamp:
		return Cell{Value: value, Timestamp: ts}, Applied
	case ts == c.Timestamp:
		return Cell{Value: TieBreak(c.Value, value), Timestamp: ts}, Tied
	default:
		return c, Stale
	}
}

// Grid is a fixed-size W×H matrix of cells addressed by offset = y*W + x.
// A Grid is not safe for concurrent use; the owner serialises access.
type Grid struct {
	width  int
	height int
	cells  []Cell
}

// New creates an empty grid. Dimensions are fixed for the grid's lifetime.
func New(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid: invalid dimensions %dx%d", width, height)
	}
	return &Grid{width: width, height: height, cells: make([]Cell, width*height)}, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Len returns the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

// Contains reports whether offset addresses a cell.
func (g *Grid) Contains(offset int) bool { return offset >= 0 && offset < len(g.cells) }

// Offset converts coordinates into an offset.
func (g *Grid) Offset(x, y int) (int, error) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return 0, fmt.Errorf("%w: (%d,%d) on %dx%d", ErrOutOfRange, x, y, g.width, g.height)
	}
	return y*g.width + x, nil
}

// Cell returns the register at offset, or the zero cell when out of range.
func (g *Grid) Cell(offset int) Cell {
	if !g.Contains(offset) {
		return Cell{}
	}
	return g.cells[offset]
}

// Apply merges one write into the grid. Out-of-range offsets are dropped.
func (g *Grid) Apply(offset int, value Mark, ts uint64) Outcome {
	if !g.Contains(offset) {
		return Dropped
	}
	next, outcome := Merge(g.cells[offset], value, ts)
	g.cells[offset] = next
	return outcome
}

// Reset clears the register at offset back to (Empty, 0).
func (g *Grid) Reset(offset int) {
	if g.Contains(offset) {
		g.cells[offset] = Cell{}
	}
}

// Cells returns a copy of all registers in offset order.
func (g *Grid) Cells() []Cell {
	out := make([]Cell, len(g.cells))
	copy(out, g.cells)
	return out
}

// Restore replaces every register, typically from a snapshot.
func (g *Grid) Restore(cells []Cell) error {
	if len(cells) != len(g.cells) {
		return fmt.Errorf("grid: restore with %d cells, want %d", len(cells), len(g.cells))
	}
	copy(g.cells, cells)
	return nil
}

// Merge folds another replica's grid into g register by register.
func (g *Grid) Merge(other *Grid) error {
	if other == nil {
		return nil
	}
	if other.width != g.width || other.height != g.height {
		return fmt.Errorf("grid: merge %dx%d into %dx%d", other.width, other.height, g.width, g.height)
	}
	for i, c := range other.cells {
		g.cells[i], _ = Merge(g.cells[i], c.Value, c.Timestamp)
	}
	return nil
}

// Equal reports whether both grids have the same dimensions and registers.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.width != other.width || g.height != other.height {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}
