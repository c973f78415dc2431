package termgrid

import (
	"image"
	"math"

	"github.com/gogpu/termgrid/glyph"
)

// Settings is the generation-stamped snapshot of everything outside the
// text content that shapes a frame. The renderer compares generation
// stamps, never field values: a caller that changes a field without
// bumping the matching generation gets stale derived state.
type Settings struct {
	// Generation changes whenever any nested generation changes.
	Generation uint32

	Font FontSettings
	Misc MiscSettings

	// TargetSize is the render target size in pixels.
	TargetSize image.Point

	// CellCount is the terminal grid size in cells.
	CellCount image.Point
}

// FontSettings carries the font metrics and decoration positions. All
// positions are in pixels from the cell top, all widths in pixels.
type FontSettings struct {
	Generation uint32

	CellSize   image.Point
	Baseline   int
	Descender  int
	FontSizePx float32

	// AdvanceWidth is the nominal single-width glyph advance.
	AdvanceWidth int

	UnderlinePos   int
	UnderlineWidth int

	// DoubleUnderlinePos holds the two line positions of a double
	// underline, drawn ThinLineWidth thick.
	DoubleUnderlinePos [2]int
	ThinLineWidth      int

	StrikethroughPos   int
	StrikethroughWidth int

	// GridlineWidth is the stroke width of box gridlines.
	GridlineWidth int

	LigaturesDisabled bool

	// ClearType selects per-channel text blending, Aliased disables
	// interpolation when scaling soft font bitmaps.
	ClearType bool
	Aliased   bool

	// SoftFontPattern and SoftFontCellSize define the DRCS soft font,
	// one uint16 per pattern row.
	SoftFontPattern  []uint16
	SoftFontCellSize image.Point
}

// MiscSettings carries per-session rendering options that change rarely.
type MiscSettings struct {
	Generation uint32

	// BackgroundColor and ForegroundColor are the fallback cell colors,
	// 0xAABBGGRR.
	BackgroundColor uint32
	ForegroundColor uint32

	// EnhancedContrast boosts grayscale text coverage. Zero is linear.
	EnhancedContrast float32

	// MinimumContrast pushes foreground lightness away from the
	// background when the two are too close. The value is a minimum L*
	// distance in [0, 1], zero disables the fix.
	MinimumContrast float64

	// CustomShaderPath names a WGSL post processing shader file. When
	// set it takes precedence over UseRetroEffect.
	CustomShaderPath string

	// UseRetroEffect enables the builtin scanline shader.
	UseRetroEffect bool
}

// fontDependents holds values derived from FontSettings, refreshed only
// when the font generation changes.
type fontDependents struct {
	// curlyTop and curlyHeight bound the curly underline band inside
	// the cell, derived from the double underline extents.
	curlyTop    int
	curlyHeight int

	curlyHalfHeight float32
	curlyFrequency  float32

	// dotSize is the builtin shade checkerboard dot size.
	dotSize int
}

func deriveFontDependents(f FontSettings) fontDependents {
	var d fontDependents

	// The curly wave occupies the vertical span of a double underline,
	// never less than 3px, clamped to stay inside the cell.
	h := f.DoubleUnderlinePos[1] + f.ThinLineWidth - f.DoubleUnderlinePos[0]
	if h < 3 {
		h = 3
	}
	top := f.DoubleUnderlinePos[0]
	if top+h > f.CellSize.Y {
		top = f.CellSize.Y - h
	}
	if top < 0 {
		top = 0
	}
	d.curlyTop = top
	d.curlyHeight = h
	d.curlyHalfHeight = float32(h) / 2

	// One full wave per cell width.
	if f.CellSize.X > 0 {
		d.curlyFrequency = float32(2 * math.Pi / float64(f.CellSize.X))
	}

	dot := math.Round(math.Max(float64(f.CellSize.X)/16, float64(f.CellSize.Y)/32))
	if dot < 1 {
		dot = 1
	}
	d.dotSize = int(dot)

	return d
}

func metricsFrom(f FontSettings) glyph.Metrics {
	return glyph.Metrics{
		CellSize:          f.CellSize,
		Baseline:          f.Baseline,
		Descender:         f.Descender,
		FontSizePx:        f.FontSizePx,
		AdvanceWidth:      f.AdvanceWidth,
		LigaturesDisabled: f.LigaturesDisabled,
		ClearType:         f.ClearType,
		Aliased:           f.Aliased,
		SoftFontCellSize:  f.SoftFontCellSize,
		SoftFontPattern:   f.SoftFontPattern,
	}
}
