package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/viant/gridsync/grid"
)

func TestPDF(t *testing.T) {
	g, _ := grid.New(3, 2)
	g.Apply(0, 1, 1)
	g.Apply(4, 1, 2)
	path := filepath.Join(t.TempDir(), "grid.pdf")
	src := Source{Width: 3, Height: 2, Kind: grid.Bool, Value: func(o int) grid.Mark { return g.Cell(o).Value }}
	if err := PDF(path, src); err != nil {
		t.Fatalf("PDF failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("export is not a PDF: %q", data[:min(8, len(data))])
	}
}

func TestWrite_KindsAndInvalid(t *testing.T) {
	for _, kind := range []grid.Kind{grid.Bool, grid.Intensity, grid.Color} {
		var buf bytes.Buffer
		src := Source{Title: kind.String(), Width: 2, Height: 2, Kind: kind, Value: func(o int) grid.Mark { return grid.Mark(o) }}
		if err := Write(&buf, src); err != nil {
			t.Fatalf("Write(%v) failed: %v", kind, err)
		}
		if buf.Len() == 0 {
			t.Fatalf("Write(%v) produced nothing", kind)
		}
	}
	if err := Write(&bytes.Buffer{}, Source{Width: 0, Height: 1}); err == nil {
		t.Fatalf("Write with empty source should fail")
	}
}

func TestFill(t *testing.T) {
	if r, g, b := fill(grid.Intensity, 255); r != 0 || g != 0 || b != 0 {
		t.Fatalf("full intensity = %d,%d,%d; want black", r, g, b)
	}
	if r, _, _ := fill(grid.Color, 1); r != palette[0][0] {
		t.Fatalf("color 1 not first palette entry")
	}
	if r, _, _ := fill(grid.Color, grid.Mark(len(palette)+1)); r != palette[0][0] {
		t.Fatalf("palette does not wrap")
	}
}
