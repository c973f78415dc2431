package grid

import (
	"encoding/binary"
	"image"
	"testing"

	"github.com/gogpu/termgrid/glyph"
)

func TestPackRoundTrip(t *testing.T) {
	tests := []struct {
		x, y int
	}{
		{0, 0},
		{1, 2},
		{-3, 7},
		{-32768, 32767},
	}
	for _, tt := range tests {
		x, y := UnpackI16(PackI16(tt.x, tt.y))
		if x != tt.x || y != tt.y {
			t.Errorf("PackI16(%d, %d) round trip = (%d, %d)", tt.x, tt.y, x, y)
		}
	}
	if x, y := UnpackU16(PackU16(300, 65535)); x != 300 || y != 65535 {
		t.Errorf("PackU16 round trip = (%d, %d)", x, y)
	}
}

func TestGridCellAccess(t *testing.T) {
	g := New(4, 3)
	if g.Cols() != 4 || g.Rows() != 3 {
		t.Fatalf("dims = %dx%d", g.Cols(), g.Rows())
	}
	g.SetColors(2, 1, 0xFF000000, 0xFFFFFFFF)
	c := g.Cell(2, 1)
	if c == nil || c.Background != 0xFF000000 || c.Foreground != 0xFFFFFFFF {
		t.Errorf("cell (2,1) = %+v", c)
	}
	for _, p := range []image.Point{{-1, 0}, {4, 0}, {0, -1}, {0, 3}} {
		if g.Cell(p.X, p.Y) != nil {
			t.Errorf("Cell(%d, %d) expected nil", p.X, p.Y)
		}
	}
}

func TestGridClear(t *testing.T) {
	g := New(2, 2)
	g.SetColors(0, 0, 1, 2)
	g.Cell(1, 1).Shading = uint32(glyph.ShadingTextGrayscale)
	g.Clear()
	for i, c := range g.Cells() {
		if c != (Cell{}) {
			t.Errorf("cell %d not zeroed: %+v", i, c)
		}
	}
}

func TestGridBytes(t *testing.T) {
	g := New(2, 1)
	c := g.Cell(1, 0)
	c.Background = 0x11223344
	c.Foreground = 0x55667788
	c.GlyphTex = PackU16(10, 20)
	c.GlyphOrigin = PackI16(-2, 3)
	c.GlyphSize = PackU16(8, 16)
	c.Shading = uint32(glyph.ShadingTextClearType)

	b := g.Bytes()
	if len(b) != 2*CellStride {
		t.Fatalf("len = %d, want %d", len(b), 2*CellStride)
	}
	if got := binary.LittleEndian.Uint32(b[CellStride:]); got != 0x11223344 {
		t.Errorf("background = %#x", got)
	}
	if got := binary.LittleEndian.Uint32(b[CellStride+12:]); got != PackI16(-2, 3) {
		t.Errorf("origin = %#x", got)
	}
	if got := binary.LittleEndian.Uint32(b[CellStride+20:]); got != uint32(glyph.ShadingTextClearType) {
		t.Errorf("shading = %d", got)
	}
}

func TestQuadList(t *testing.T) {
	var l QuadList
	l.Append(image.Rect(0, 0, 10, 2), 0xFF0000FF, glyph.ShadingSolidLine)
	l.Append(image.Rect(5, 5, 5, 9), 0xFF0000FF, glyph.ShadingSolidLine) // empty
	l.Clip(image.Rect(-4, 0, 6, 2), image.Rect(0, 0, 100, 100), 0xFF00FF00, glyph.ShadingDottedLine)
	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
	if got := l.Quads()[1].Rect; got != image.Rect(0, 0, 6, 2) {
		t.Errorf("clipped rect = %v", got)
	}
	l.Reset()
	if l.Len() != 0 {
		t.Errorf("len after reset = %d", l.Len())
	}
}

func TestRowSpans(t *testing.T) {
	s := NewRowSpans(3)
	if _, _, ok := s.Span(0); ok {
		t.Error("fresh row reported a span")
	}
	s.Extend(0, 4, 20)
	s.Extend(0, -2, 10) // glyph overhang above the row
	s.Extend(2, 40, 56)
	s.Extend(1, 5, 5)  // empty extent ignored
	s.Extend(9, 0, 10) // out of range ignored

	top, bottom, ok := s.Span(0)
	if !ok || top != -2 || bottom != 20 {
		t.Errorf("row 0 span = (%d, %d, %v)", top, bottom, ok)
	}
	if _, _, ok := s.Span(1); ok {
		t.Error("row 1 should be untouched")
	}
	top, bottom, ok = s.Union(0, 2)
	if !ok || top != -2 || bottom != 56 {
		t.Errorf("union = (%d, %d, %v)", top, bottom, ok)
	}
	s.Reset()
	if _, _, ok := s.Union(0, 2); ok {
		t.Error("union after reset should be empty")
	}
}
