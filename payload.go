package termgrid

import (
	"github.com/go-text/typesetting/font"

	"github.com/gogpu/termgrid/glyph"
)

// WarningCallback receives recoverable render failures, like a custom
// shader that fails to compile. ctx names what failed, typically a file
// path or a shader label.
type WarningCallback func(err error, ctx string)

// GridLines is a bitset of decorations applied to a cell range.
type GridLines uint16

const (
	GridLineUnderline GridLines = 1 << iota
	GridLineDoubleUnderline
	GridLineDottedUnderline
	GridLineDashedUnderline
	GridLineCurlyUnderline
	GridLineStrikethrough
	GridLineTop
	GridLineBottom
	GridLineLeft
	GridLineRight
)

// GridLineRange applies a set of decorations to the columns [From, To).
type GridLineRange struct {
	From, To int
	Lines    GridLines

	// Color is the decoration color, 0xAABBGGRR.
	Color uint32
}

// GlyphMapping associates a run of shaped glyphs with a font face. A nil
// face selects builtin drawing, in which case the glyph indices of the
// run are UTF-16 code units and surrogate pairs are combined before
// lookup.
type GlyphMapping struct {
	Face *font.Face

	// GlyphCount is the number of consecutive glyphs covered, counted
	// from where the previous mapping ended.
	GlyphCount int
}

// RowBitmap is an inline image (sixel and friends) attached to a row,
// pre-scaled to target pixels. The revision stamp keys the atlas cache:
// the pixels are re-uploaded only when it changes.
type RowBitmap struct {
	Revision uint64

	// RGBA holds Width*Height*4 premultiplied bytes.
	RGBA          []uint8
	Width, Height int

	// OriginColumn is the leftmost cell the bitmap covers.
	OriginColumn int
}

// ShapedRow is one terminal row of externally shaped text. The glyph
// arrays run parallel: index i has a glyph index, an x position in target
// pixels, and belongs to the face of the mapping covering i.
type ShapedRow struct {
	GlyphIndices []uint32
	Positions    []float32
	Mappings     []GlyphMapping

	Rendition glyph.LineRendition

	// Background and Foreground are per-column colors, 0xAABBGGRR.
	// Shorter slices fall back to the session colors.
	Background []uint32
	Foreground []uint32

	GridLines []GridLineRange

	Bitmap *RowBitmap

	// Invalidated marks the row as changed since the previous frame.
	// The frame dirty rect is the union of invalidated rows' ink spans.
	Invalidated bool
}

// Payload is the complete per-frame render input.
type Payload struct {
	Settings Settings

	// Rows has exactly Settings.CellCount.Y entries. A nil row renders
	// as empty cells in the session background color.
	Rows []*ShapedRow

	// ColorBitmapGeneration stamps the caller's color buffers. Cell
	// colors are restamped only when it changes, or when the grid was
	// rebuilt for another reason.
	ColorBitmapGeneration uint32

	// CursorColor draws a solid cursor quad over CursorRect when
	// nonzero. The rect is in cells.
	CursorRect  [4]int
	CursorColor uint32

	// Time is the shader clock in seconds. It is wrapped modulo 1000
	// before upload so float32 precision holds over long sessions.
	Time float64

	Warning WarningCallback
}
