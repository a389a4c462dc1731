package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/viant/gridsync/grid"
)

var (
	// ErrTruncated is returned when a payload ends inside a field.
	ErrTruncated = errors.New("wire: truncated payload")
	// ErrTimestamp is returned for payloads carrying a zero timestamp.
	ErrTimestamp = errors.New("wire: timestamp must be positive")
)

// Update is one committed stroke: every target shares value and timestamp.
type Update struct {
	Targets   []uint32
	Value     grid.Mark
	Timestamp uint64
}

// Preview is a provisional write of a single cell during an open stroke.
type Preview struct {
	Offset    uint32
	Timestamp uint64
	Value     grid.Mark
}

// EncodeUpdate encodes u as: target count, targets, value, timestamp.
func EncodeUpdate(u Update) []byte {
	b := make([]byte, 0, binary.MaxVarintLen32*(len(u.Targets)+2)+binary.MaxVarintLen64)
	b = binary.AppendUvarint(b, uint64(len(u.Targets)))
	for _, t := range u.Targets {
		b = binary.AppendUvarint(b, uint64(t))
	}
	b = binary.AppendUvarint(b, uint64(u.Value))
	b = binary.AppendUvarint(b, u.Timestamp)
	return b
}

// DecodeUpdate decodes a payload produced by EncodeUpdate. A zero timestamp
// rejects the whole update.
func DecodeUpdate(b []byte) (Update, error) {
	r := reader{buf: b}
	count, err := r.uvarint()
	if err != nil {
		return Update{}, err
	}
	// every target takes at least one byte
	if count > uint64(len(r.buf)) {
		return Update{}, fmt.Errorf("%w: %d targets in %d bytes", ErrTruncated, count, len(r.buf))
	}
	u := Update{Targets: make([]uint32, 0, count)}
	for i := uint64(0); i < count; i++ {
		t, err := r.uint32()
		if err != nil {
			return Update{}, err
		}
		u.Targets = append(u.Targets, t)
	}
	v, err := r.uint32()
	if err != nil {
		return Update{}, err
	}
	u.Value = grid.Mark(v)
	if u.Timestamp, err = r.uvarint(); err != nil {
		return Update{}, err
	}
	if err := r.done(); err != nil {
		return Update{}, err
	}
	if u.Timestamp == 0 {
		return Update{}, ErrTimestamp
	}
	return u, nil
}

// EncodePreview encodes p as: offset, timestamp, value.
func EncodePreview(p Preview) []byte {
	b := make([]byte, 0, 2*binary.MaxVarintLen32+binary.MaxVarintLen64)
	b = binary.AppendUvarint(b, uint64(p.Offset))
	b = binary.AppendUvarint(b, p.Timestamp)
	b = binary.AppendUvarint(b, uint64(p.Value))
	return b
}

// DecodePreview decodes a payload produced by EncodePreview.
func DecodePreview(b []byte) (Preview, error) {
	r := reader{buf: b}
	var p Preview
	var err error
	if p.Offset, err = r.uint32(); err != nil {
		return Preview{}, err
	}
	if p.Timestamp, err = r.uvarint(); err != nil {
		return Preview{}, err
	}
	v, err := r.uint32()
	if err != nil {
		return Preview{}, err
	}
	p.Value = grid.Mark(v)
	if err := r.done(); err != nil {
		return Preview{}, err
	}
	if p.Timestamp == 0 {
		return Preview{}, ErrTimestamp
	}
	return p, nil
}

type reader struct {
	buf []byte
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf)
	if n == 0 {
		return 0, ErrTruncated
	}
	if n < 0 {
		return 0, fmt.Errorf("wire: varint overflows 64 bits")
	}
	r.buf = r.buf[n:]
	return v, nil
}

func (r *reader) uint32() (uint32, error) {
	v, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("wire: value %d overflows 32 bits", v)
	}
	return uint32(v), nil
}

func (r *reader) done() error {
	if len(r.buf) != 0 {
		return fmt.Errorf("wire: %d trailing bytes", len(r.buf))
	}
	return nil
}
