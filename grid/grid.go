// Package grid holds the per-frame cell grid: a fixed-size 2D array of
// GPU-visible cell records rebuilt every frame from shaped rows. It is a
// render-only projection of the terminal contents, not persistent state.
package grid

import "encoding/binary"

// Cell is one GPU-visible grid record. The layout matches the Cell struct
// in the compositor shader: six u32 fields, 24 bytes, no padding.
//
// Colors are non-premultiplied 0xAABBGGRR. GlyphTex packs the atlas
// position of the glyph fragment as two u16, GlyphOrigin packs the
// fragment's top-left relative to the cell's top-left as two i16 (negative
// for overhanging ink), GlyphSize packs the fragment extent as two u16.
// Shading of zero marks a cell without a glyph; the compositor then skips
// atlas sampling entirely.
type Cell struct {
	Background  uint32
	Foreground  uint32
	GlyphTex    uint32
	GlyphOrigin uint32
	GlyphSize   uint32
	Shading     uint32
}

// CellStride is the byte size of one encoded Cell.
const CellStride = 24

// PackU16 packs two 16 bit values into one u32, x in the low half.
func PackU16(x, y int) uint32 {
	return uint32(uint16(x)) | uint32(uint16(y))<<16
}

// PackI16 packs two signed 16 bit values into one u32, x in the low half.
func PackI16(x, y int) uint32 {
	return uint32(uint16(int16(x))) | uint32(uint16(int16(y)))<<16
}

// UnpackI16 reverses PackI16.
func UnpackI16(v uint32) (x, y int) {
	return int(int16(uint16(v))), int(int16(uint16(v >> 16)))
}

// UnpackU16 reverses PackU16.
func UnpackU16(v uint32) (x, y int) {
	return int(uint16(v)), int(uint16(v >> 16))
}

// Grid is the fixed-size cell grid for one viewport.
// It is rewritten from scratch every frame.
type Grid struct {
	cols  int
	rows  int
	cells []Cell
	buf   []byte
}

// New creates a grid with the given cell dimensions.
func New(cols, rows int) *Grid {
	g := &Grid{}
	g.Resize(cols, rows)
	return g
}

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Resize reallocates the grid for a new viewport cell count.
func (g *Grid) Resize(cols, rows int) {
	g.cols = cols
	g.rows = rows
	g.cells = make([]Cell, cols*rows)
	g.buf = make([]byte, cols*rows*CellStride)
}

// Clear zeroes every cell.
func (g *Grid) Clear() {
	clear(g.cells)
}

// Cell returns the record at (x, y), or nil when out of bounds.
// Out-of-bounds writes are common with overhanging glyphs near the
// viewport edges and must be silently dropped by the caller.
func (g *Grid) Cell(x, y int) *Cell {
	if x < 0 || x >= g.cols || y < 0 || y >= g.rows {
		return nil
	}
	return &g.cells[y*g.cols+x]
}

// Cells returns the backing cell slice in row-major order.
func (g *Grid) Cells() []Cell {
	return g.cells
}

// SetColors writes the color pair of one cell.
func (g *Grid) SetColors(x, y int, background, foreground uint32) {
	if c := g.Cell(x, y); c != nil {
		c.Background = background
		c.Foreground = foreground
	}
}

// Bytes encodes the grid into its GPU upload layout. The returned slice is
// reused across calls.
func (g *Grid) Bytes() []byte {
	o := 0
	for i := range g.cells {
		c := &g.cells[i]
		binary.LittleEndian.PutUint32(g.buf[o+0:], c.Background)
		binary.LittleEndian.PutUint32(g.buf[o+4:], c.Foreground)
		binary.LittleEndian.PutUint32(g.buf[o+8:], c.GlyphTex)
		binary.LittleEndian.PutUint32(g.buf[o+12:], c.GlyphOrigin)
		binary.LittleEndian.PutUint32(g.buf[o+16:], c.GlyphSize)
		binary.LittleEndian.PutUint32(g.buf[o+20:], c.Shading)
		o += CellStride
	}
	return g.buf
}
