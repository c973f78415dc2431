package glyph

import "image"

// LineRendition is the DEC double-width/double-height mode of a row.
// It selects which of the four per-face glyph maps an entry lives in,
// because the same glyph index rasterizes differently per rendition.
type LineRendition uint8

const (
	SingleWidth LineRendition = iota
	DoubleWidth
	DoubleHeightTop
	DoubleHeightBottom
)

// HorizontalShift returns 1 if glyphs are drawn at double width.
// Double-height rows are always double-width as well.
func (r LineRendition) HorizontalShift() int {
	if r != SingleWidth {
		return 1
	}
	return 0
}

// VerticalShift returns 1 if glyphs are drawn at double height.
func (r LineRendition) VerticalShift() int {
	if r >= DoubleHeightTop {
		return 1
	}
	return 0
}

func (r LineRendition) String() string {
	switch r {
	case SingleWidth:
		return "SingleWidth"
	case DoubleWidth:
		return "DoubleWidth"
	case DoubleHeightTop:
		return "DoubleHeightTop"
	case DoubleHeightBottom:
		return "DoubleHeightBottom"
	default:
		return "Unknown"
	}
}

// ShadingType selects the blend formula the compositor applies to a cell or
// decoration quad. The numeric values are shared with the compute shader.
type ShadingType uint8

const (
	// ShadingDefault marks whitespace. Cells with this shading are never
	// stamped into the grid and decorations with it are never emitted.
	ShadingDefault ShadingType = iota

	// ShadingTextGrayscale blends a single coverage channel with
	// enhanced contrast applied.
	ShadingTextGrayscale

	// ShadingTextClearType blends per-channel coverage.
	ShadingTextClearType

	// ShadingTextPassthrough copies premultiplied glyph color over the
	// background, used for color emoji.
	ShadingTextPassthrough

	// ShadingTextBuiltinGlyph shades a checkerboard pattern controlled
	// by the glyph's RGB channels (stretch, invert, fill).
	ShadingTextBuiltinGlyph

	// Decoration line shadings. These carry no atlas data.
	ShadingSolidLine
	ShadingDottedLine
	ShadingDashedLine
	ShadingCurlyLine
)

func (s ShadingType) String() string {
	switch s {
	case ShadingDefault:
		return "Default"
	case ShadingTextGrayscale:
		return "TextGrayscale"
	case ShadingTextClearType:
		return "TextClearType"
	case ShadingTextPassthrough:
		return "TextPassthrough"
	case ShadingTextBuiltinGlyph:
		return "TextBuiltinGlyph"
	case ShadingSolidLine:
		return "SolidLine"
	case ShadingDottedLine:
		return "DottedLine"
	case ShadingDashedLine:
		return "DashedLine"
	case ShadingCurlyLine:
		return "CurlyLine"
	default:
		return "Unknown"
	}
}

// Entry is one cached glyph placement. Entries are owned by the Cache and
// invalidated wholesale on every atlas reset; pointers to them must not be
// retained across frames.
type Entry struct {
	// GlyphIndex is the font glyph index, or the code point for builtin
	// and soft font glyphs.
	GlyphIndex uint32

	// Shading selects the compositor blend formula.
	// ShadingDefault means the glyph has no visible ink.
	Shading ShadingType

	// OverlapSplit is set for wide glyphs whose ink crosses the ligature
	// overhang thresholds. The compositor renders such glyphs as
	// cell-clipped fragments so foreground colors stay per cell.
	OverlapSplit bool

	// Offset is the position of the glyph rect relative to the pen
	// position on the baseline.
	Offset image.Point

	// Size is the glyph rect size in pixels.
	Size image.Point

	// Texcoord is the top-left corner of the glyph rect in the atlas.
	Texcoord image.Point
}
