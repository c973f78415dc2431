package grid

import (
	"image"

	"github.com/gogpu/termgrid/glyph"
)

// Quad is a decoration primitive: a solid or patterned rectangle drawn
// over the cell layer. Underlines, strikethrough, grid lines and the
// cursor are all emitted as quads. Coordinates are target pixels.
type Quad struct {
	Rect    image.Rectangle
	Color   uint32
	Shading glyph.ShadingType
}

// QuadList collects the decoration quads for one frame.
type QuadList struct {
	quads []Quad
}

// Append adds a quad, dropping empty rectangles.
func (l *QuadList) Append(r image.Rectangle, color uint32, shading glyph.ShadingType) {
	if r.Empty() {
		return
	}
	l.quads = append(l.quads, Quad{Rect: r, Color: color, Shading: shading})
}

// Clip appends the quad clipped to the given bounds.
func (l *QuadList) Clip(r image.Rectangle, clip image.Rectangle, color uint32, shading glyph.ShadingType) {
	l.Append(r.Intersect(clip), color, shading)
}

// Quads returns the collected quads.
func (l *QuadList) Quads() []Quad {
	return l.quads
}

// Reset empties the list while keeping its capacity.
func (l *QuadList) Reset() {
	l.quads = l.quads[:0]
}

// Len returns the number of collected quads.
func (l *QuadList) Len() int {
	return len(l.quads)
}
