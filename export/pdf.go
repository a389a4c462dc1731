package export

import (
	"fmt"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"github.com/viant/gridsync/grid"
)

const (
	pageWidth  = 210.0 // A4, mm
	pageHeight = 297.0
	margin     = 10.0
	titleSpace = 12.0
)

// Source is what gets exported: dimensions plus the displayed value of each
// cell.
type Source struct {
	Title  string
	Width  int
	Height int
	Kind   grid.Kind
	Value  func(offset int) grid.Mark
}

// PDF writes src to a new file at path.
func PDF(path string, src Source) error {
	p, err := render(src)
	if err != nil {
		return err
	}
	if err := p.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

// Write renders src to w.
func Write(w io.Writer, src Source) error {
	p, err := render(src)
	if err != nil {
		return err
	}
	return p.Output(w)
}

func render(src Source) (*gofpdf.Fpdf, error) {
	if src.Width <= 0 || src.Height <= 0 || src.Value == nil {
		return nil, fmt.Errorf("export: invalid source %dx%d", src.Width, src.Height)
	}
	p := gofpdf.New("P", "mm", "A4", "")
	p.AddPage()
	p.SetFont("Helvetica", "", 10)
	title := src.Title
	if title == "" {
		title = fmt.Sprintf("%dx%d %v grid", src.Width, src.Height, src.Kind)
	}
	p.Text(margin, margin+4, title)

	size := math.Min((pageWidth-2*margin)/float64(src.Width), (pageHeight-2*margin-titleSpace)/float64(src.Height))
	top := margin + titleSpace
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			m := src.Value(y*src.Width + x)
			if m == grid.Empty {
				continue
			}
			r, g, b := fill(src.Kind, m)
			p.SetFillColor(r, g, b)
			p.Rect(margin+float64(x)*size, top+float64(y)*size, size, size, "F")
		}
	}
	p.SetDrawColor(0, 0, 0)
	p.SetLineWidth(0.3)
	p.Rect(margin, top, float64(src.Width)*size, float64(src.Height)*size, "D")
	if err := p.Error(); err != nil {
		return nil, fmt.Errorf("export: render: %w", err)
	}
	return p, nil
}

// fill maps a non-empty mark to an RGB fill.
func fill(kind grid.Kind, m grid.Mark) (int, int, int) {
	switch kind {
	case grid.Intensity:
		v := 255 - int(m&0xff)
		return v, v, v
	case grid.Color:
		c := palette[int(m-1)%len(palette)]
		return c[0], c[1], c[2]
	}
	return 0, 0, 0
}

var palette = [][3]int{
	{230, 25, 75}, {60, 180, 75}, {0, 130, 200}, {245, 130, 48},
	{145, 30, 180}, {70, 240, 240}, {240, 50, 230}, {128, 128, 0},
}
