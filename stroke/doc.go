// Package stroke turns one continuous input gesture into live previews and a
// single authoritative update.
//
// A Buffer is Idle until Press, Active while the gesture lasts, and returns to
// Idle on Release or Cancel. Every newly touched cell yields a wire.Preview
// stamped with the clock's next value; committing advances the clock exactly
// once and yields one wire.Update covering every touched cell, so the stroke
// is a single causal edit and its timestamp is never lower than any preview
// sent for it.
package stroke
