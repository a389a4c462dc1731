package replica

import "github.com/viant/gridsync/transport"

// Event is one input to Step.
type Event interface {
	event()
}

// LocalPress starts a stroke at cell (X, Y).
type LocalPress struct{ X, Y int }

// LocalMove extends the open stroke to cell (X, Y).
type LocalMove struct{ X, Y int }

// LocalRelease commits the open stroke.
type LocalRelease struct{}

// LocalCancel aborts the open stroke, e.g. when the pointer leaves the grid.
type LocalCancel struct{}

// AuthoritativeUpdate is one entry delivered by the authoritative log.
type AuthoritativeUpdate struct {
	transport.Delivery
}

// PreviewUpdate is one payload received on the preview channel.
type PreviewUpdate struct {
	Payload []byte
}

// Func runs on the replica's goroutine; hosts use it to read state while Run
// is active.
type Func func(r *Replica)

func (LocalPress) event()          {}
func (LocalMove) event()           {}
func (LocalRelease) event()        {}
func (LocalCancel) event()         {}
func (AuthoritativeUpdate) event() {}
func (PreviewUpdate) event()       {}
func (Func) event()                {}
