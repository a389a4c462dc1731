package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/gridsync/grid"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("snapshot: not found")

// State is the persisted replica state: committed cells, the logical clock and
// the serial of the last authoritative update applied.
type State struct {
	Width  int
	Height int
	Cells  []grid.Cell
	Clock  uint64
	Serial uint64
}

// Validate checks that the cell count matches the dimensions.
func (s *State) Validate() error {
	if s == nil {
		return fmt.Errorf("snapshot: state is nil")
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("snapshot: invalid dimensions %dx%d", s.Width, s.Height)
	}
	if len(s.Cells) != s.Width*s.Height {
		return fmt.Errorf("snapshot: %d cells for %dx%d grid", len(s.Cells), s.Width, s.Height)
	}
	return nil
}

// Store persists and restores State. Save overwrites atomically: a reader
// sees either the previous or the new state, never a mix.
type Store interface {
	// Load returns the last saved state or ErrNotFound.
	Load(ctx context.Context) (*State, error)

	// Save replaces the persisted state.
	Save(ctx context.Context, state *State) error
}

// MemoryStore keeps the state in process memory.
type MemoryStore struct {
	state *State
	// Err, when set, is returned by every call.
	Err error
}

// Load returns a copy of the saved state.
func (m *MemoryStore) Load(context.Context) (*State, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.state == nil {
		return nil, ErrNotFound
	}
	return clone(m.state), nil
}

// Save stores a copy of state.
func (m *MemoryStore) Save(_ context.Context, state *State) error {
	if m.Err != nil {
		return m.Err
	}
	if err := state.Validate(); err != nil {
		return err
	}
	m.state = clone(state)
	return nil
}

func clone(s *State) *State {
	out := *s
	out.Cells = append([]grid.Cell(nil), s.Cells...)
	return &out
}

var _ Store = (*MemoryStore)(nil)
