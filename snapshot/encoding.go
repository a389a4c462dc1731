package snapshot

import (
	"encoding/binary"
	"fmt"

	"github.com/viant/gridsync/grid"
)

// cellSize is the encoded size of one cell: 4-byte value, 8-byte timestamp.
const cellSize = 12

// EncodeCells encodes cells into a BLOB of little-endian (value, timestamp)
// records in offset order. The cell count is derived from the BLOB size.
func EncodeCells(cells []grid.Cell) []byte {
	b := make([]byte, len(cells)*cellSize)
	for i, c := range cells {
		binary.LittleEndian.PutUint32(b[i*cellSize:], uint32(c.Value))
		binary.LittleEndian.PutUint64(b[i*cellSize+4:], c.Timestamp)
	}
	return b
}

// DecodeCells decodes a BLOB produced by EncodeCells.
func DecodeCells(b []byte) ([]grid.Cell, error) {
	if len(b)%cellSize != 0 {
		return nil, fmt.Errorf("snapshot: invalid cells blob length %d (not multiple of %d)", len(b), cellSize)
	}
	cells := make([]grid.Cell, len(b)/cellSize)
	for i := range cells {
		cells[i] = grid.Cell{
			Value:     grid.Mark(binary.LittleEndian.Uint32(b[i*cellSize:])),
			Timestamp: binary.LittleEndian.Uint64(b[i*cellSize+4:]),
		}
	}
	return cells, nil
}
