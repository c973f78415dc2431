package compose

import (
	"image"
	"testing"

	"github.com/gogpu/termgrid/atlas"
	"github.com/gogpu/termgrid/glyph"
	"github.com/gogpu/termgrid/grid"
)

const (
	testRed   = 0xFF0000FF
	testGreen = 0xFF00FF00
	testBlue  = 0xFFFF0000
	testBlack = 0xFF000000
	testWhite = 0xFFFFFFFF
)

func testFrame(t *testing.T) (*Compositor, Params, *grid.Grid, *atlas.Atlas) {
	t.Helper()
	a := atlas.New(16, 16)
	x, y, ok := a.Pack(4, 4)
	if !ok {
		t.Fatal("pack failed")
	}
	white := make([]uint8, 4*4*4)
	for i := range white {
		white[i] = 0xFF
	}
	a.Write(x, y, 4, 4, white)

	g := grid.New(2, 1)
	g.SetColors(0, 0, testRed, testWhite)
	c := g.Cell(1, 0)
	c.Background = testBlack
	c.Foreground = testWhite
	c.GlyphTex = grid.PackU16(x, y)
	c.GlyphOrigin = grid.PackI16(0, 0)
	c.GlyphSize = grid.PackU16(4, 4)
	c.Shading = uint32(glyph.ShadingTextGrayscale)

	p := Params{
		TargetSize: image.Pt(10, 6),
		CellSize:   image.Pt(4, 4),
		Cols:       2,
		Rows:       1,
		FillColor:  testGreen,
	}
	return NewCompositor(nil), p, g, a
}

func framePixel(t *testing.T, frame []uint8, width, x, y int) uint32 {
	t.Helper()
	return getPixel(frame, width, x, y)
}

func TestCompositeCPU(t *testing.T) {
	c, p, g, a := testFrame(t)
	if c.GPUActive() {
		t.Fatal("nil adapter must use the CPU path")
	}
	if err := c.Composite(p, g, nil, a); err != nil {
		t.Fatal(err)
	}
	frame, err := c.Target()
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 10*6*4 {
		t.Fatalf("frame size = %d", len(frame))
	}

	if got := framePixel(t, frame, 10, 0, 0); got != testRed {
		t.Errorf("background cell = %#x, want red", got)
	}
	if got := framePixel(t, frame, 10, 4, 0); got != testWhite {
		t.Errorf("glyph pixel = %#x, want white", got)
	}
	if got := framePixel(t, frame, 10, 9, 0); got != testGreen {
		t.Errorf("right margin = %#x, want fill", got)
	}
	if got := framePixel(t, frame, 10, 0, 5); got != testGreen {
		t.Errorf("bottom margin = %#x, want fill", got)
	}
	if _, dirty := a.Dirty(); dirty {
		t.Error("composite should consume the atlas dirty rect")
	}
}

func TestCompositeGlyphWindow(t *testing.T) {
	c, p, g, a := testFrame(t)
	// Shrink the stamped glyph window to the cell's top-left quarter.
	cell := g.Cell(1, 0)
	cell.GlyphSize = grid.PackU16(2, 2)
	if err := c.Composite(p, g, nil, a); err != nil {
		t.Fatal(err)
	}
	frame, _ := c.Target()
	if got := framePixel(t, frame, 10, 5, 1); got != testWhite {
		t.Errorf("inside window = %#x, want white", got)
	}
	if got := framePixel(t, frame, 10, 7, 3); got != testBlack {
		t.Errorf("outside window = %#x, want background", got)
	}
}

func TestCompositeQuads(t *testing.T) {
	c, p, g, a := testFrame(t)
	var quads grid.QuadList
	quads.Append(image.Rect(0, 0, 2, 2), testBlue, glyph.ShadingSolidLine)
	// Dotted stroke of width 1: 2px dots, 2px gaps.
	p.UnderlineWidth = 1
	quads.Append(image.Rect(0, 4, 8, 5), testWhite, glyph.ShadingDottedLine)

	if err := c.Composite(p, g, quads.Quads(), a); err != nil {
		t.Fatal(err)
	}
	frame, _ := c.Target()
	if got := framePixel(t, frame, 10, 1, 1); got != testBlue {
		t.Errorf("solid quad = %#x, want blue", got)
	}
	if got := framePixel(t, frame, 10, 0, 4); got != testWhite {
		t.Errorf("dot pixel = %#x, want white", got)
	}
	if got := framePixel(t, frame, 10, 2, 4); got == testWhite {
		t.Errorf("gap pixel should keep the cell color, got %#x", got)
	}
}

func TestCompositeRejectsEmptyTarget(t *testing.T) {
	c, p, g, a := testFrame(t)
	p.TargetSize = image.Point{}
	if err := c.Composite(p, g, nil, a); err == nil {
		t.Fatal("expected an error for an empty target")
	}
}
