package wire

import (
	"errors"
	"testing"

	"github.com/viant/gridsync/grid"
)

func TestEncodeDecodeUpdate(t *testing.T) {
	orig := Update{Targets: []uint32{0, 1, 899, 70000}, Value: 1, Timestamp: 1 << 40}
	decoded, err := DecodeUpdate(EncodeUpdate(orig))
	if err != nil {
		t.Fatalf("DecodeUpdate failed: %v", err)
	}
	if decoded.Value != orig.Value || decoded.Timestamp != orig.Timestamp {
		t.Fatalf("decoded = %+v, want %+v", decoded, orig)
	}
	if len(decoded.Targets) != len(orig.Targets) {
		t.Fatalf("decoded %d targets, want %d", len(decoded.Targets), len(orig.Targets))
	}
	for i := range orig.Targets {
		if decoded.Targets[i] != orig.Targets[i] {
			t.Fatalf("target[%d] = %d, want %d", i, decoded.Targets[i], orig.Targets[i])
		}
	}
}

func TestEncodeUpdate_Compact(t *testing.T) {
	b := EncodeUpdate(Update{Targets: []uint32{0, 1}, Value: 1, Timestamp: 1})
	if len(b) != 5 {
		t.Fatalf("encoded length = %d, want 5", len(b))
	}
}

func TestDecodeUpdate_Rejects(t *testing.T) {
	valid := EncodeUpdate(Update{Targets: []uint32{3}, Value: 2, Timestamp: 9})
	tests := []struct {
		name    string
		payload []byte
		is      error
	}{
		{name: "empty", payload: nil, is: ErrTruncated},
		{name: "truncated", payload: valid[:len(valid)-1], is: ErrTruncated},
		{name: "count larger than payload", payload: []byte{0x7f, 1}, is: ErrTruncated},
		{name: "zero timestamp", payload: EncodeUpdate(Update{Targets: []uint32{1}, Value: 1}), is: ErrTimestamp},
		{name: "trailing bytes", payload: append(append([]byte(nil), valid...), 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeUpdate(tc.payload)
			if err == nil {
				t.Fatalf("DecodeUpdate(%x) succeeded, want error", tc.payload)
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("DecodeUpdate(%x) err = %v, want %v", tc.payload, err, tc.is)
			}
		})
	}
}

func TestEncodeDecodePreview(t *testing.T) {
	orig := Preview{Offset: 42, Timestamp: 7, Value: grid.Mark(200)}
	decoded, err := DecodePreview(EncodePreview(orig))
	if err != nil {
		t.Fatalf("DecodePreview failed: %v", err)
	}
	if decoded != orig {
		t.Fatalf("decoded = %+v, want %+v", decoded, orig)
	}
	if _, err := DecodePreview([]byte{1, 0, 1}); !errors.Is(err, ErrTimestamp) {
		t.Fatalf("zero timestamp preview err = %v, want ErrTimestamp", err)
	}
	if _, err := DecodePreview([]byte{1}); !errors.Is(err, ErrTruncated) {
		t.Fatalf("short preview err = %v, want ErrTruncated", err)
	}
}
