package clock

// Lamport is a monotone scalar logical clock. It is advanced once per locally
// committed edit and raised to every timestamp observed on the authoritative
// log, so it tracks the largest timestamp this replica has ever seen.
//
// Lamport is not safe for concurrent use; the owning replica serialises access.
type Lamport struct {
	now uint64
}

// New returns a clock starting at start, typically restored from a snapshot.
func New(start uint64) *Lamport { return &Lamport{now: start} }

// Now returns the current value.
func (c *Lamport) Now() uint64 { return c.now }

// Next returns the value AdvanceLocal would return, without advancing.
func (c *Lamport) Next() uint64 { return c.now + 1 }

// AdvanceLocal increments the clock and returns the new value.
func (c *Lamport) AdvanceLocal() uint64 {
	c.now++
	return c.now
}

// Observe raises the clock to ts if ts is larger and returns the current value.
func (c *Lamport) Observe(ts uint64) uint64 {
	if ts > c.now {
		c.now = ts
	}
	return c.now
}
