package grid

import (
	"fmt"
	"strings"
)

// Mark is the payload painted into a cell. The zero Mark is Empty for every
// Kind.
type Mark uint32

// Empty is the value of an unpainted cell.
const Empty Mark = 0

// Kind selects the mark variant a deployment paints with. Exactly one Kind is
// used per deployment; it bounds the valid marks.
type Kind uint8

const (
	// Bool cells are either Empty or 1.
	Bool Kind = iota + 1
	// Intensity cells carry a value in 0..255.
	Intensity
	// Color cells carry a peer color id, 0 meaning erased.
	Color
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Intensity:
		return "intensity"
	case Color:
		return "color"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether m is a legal mark for the kind.
func (k Kind) Valid(m Mark) bool {
	switch k {
	case Bool:
		return m <= 1
	case Intensity:
		return m <= 0xff
	case Color:
		return true
	}
	return false
}

// ParseKind resolves a kind by its configuration name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean", "":
		return Bool, nil
	case "intensity":
		return Intensity, nil
	case "color", "colour":
		return Color, nil
	}
	return 0, fmt.Errorf("grid: unknown mark kind %q", s)
}

// TieBreak resolves two marks written with the same timestamp. It takes the
// numeric maximum, which is pure, commutative, associative and idempotent, so
// replicas agree regardless of the order concurrent writes arrive in.
func TieBreak(a, b Mark) Mark {
	if a >= b {
		return a
	}
	return b
}
