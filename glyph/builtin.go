package glyph

// Builtin glyphs are box drawing and block element code points drawn
// procedurally at full cell size when no font face is supplied for them.
// Shapes are coordinate tables, not per-glyph draw code, so the raster path
// stays testable without any graphics context.

// shade is the fill coverage class of a shape. The compositor shades a
// checkerboard pattern per class instead of storing one bitmap per level.
type shade uint8

const (
	shade25 shade = iota
	shade50
	shade75
	shade100
)

// shadeColors maps a shade class to the RGB control channels consumed by
// the builtin glyph shading formula:
//
//	R: stretch the checkerboard pattern horizontally
//	G: invert the pixels
//	B: override the above and fill solid
var shadeColors = [4][3]uint8{
	shade25:  {0xFF, 0x00, 0x00},
	shade50:  {0x00, 0x00, 0x00},
	shade75:  {0xFF, 0xFF, 0x00},
	shade100: {0xFF, 0xFF, 0xFF},
}

// shapeRect is a rectangle in eighths of the cell. An axis with zero extent
// marks a stroke centered on that coordinate, drawn at the standard line
// thickness for the cell size.
type shapeRect struct {
	shade          shade
	x0, y0, x1, y1 int8
}

// Shorthands for the stroke halves of box drawing characters.
var (
	strokeLeft   = shapeRect{shade100, 0, 4, 4, 4}
	strokeRight  = shapeRect{shade100, 4, 4, 8, 4}
	strokeUp     = shapeRect{shade100, 4, 0, 4, 4}
	strokeDown   = shapeRect{shade100, 4, 4, 4, 8}
	strokeHoriz  = shapeRect{shade100, 0, 4, 8, 4}
	strokeVert   = shapeRect{shade100, 4, 0, 4, 8}
	fillFullCell = shapeRect{shade100, 0, 0, 8, 8}
)

// builtinShapes keys procedural glyphs by code point.
var builtinShapes = map[rune][]shapeRect{
	// Box drawing, light.
	0x2500: {strokeHoriz},
	0x2502: {strokeVert},
	0x250C: {strokeRight, strokeDown},
	0x2510: {strokeLeft, strokeDown},
	0x2514: {strokeRight, strokeUp},
	0x2518: {strokeLeft, strokeUp},
	0x251C: {strokeVert, strokeRight},
	0x2524: {strokeVert, strokeLeft},
	0x252C: {strokeHoriz, strokeDown},
	0x2534: {strokeHoriz, strokeUp},
	0x253C: {strokeHoriz, strokeVert},

	// Block elements.
	0x2580: {{shade100, 0, 0, 8, 4}}, // upper half
	0x2581: {{shade100, 0, 7, 8, 8}},
	0x2582: {{shade100, 0, 6, 8, 8}},
	0x2583: {{shade100, 0, 5, 8, 8}},
	0x2584: {{shade100, 0, 4, 8, 8}}, // lower half
	0x2585: {{shade100, 0, 3, 8, 8}},
	0x2586: {{shade100, 0, 2, 8, 8}},
	0x2587: {{shade100, 0, 1, 8, 8}},
	0x2588: {fillFullCell},
	0x2589: {{shade100, 0, 0, 7, 8}},
	0x258A: {{shade100, 0, 0, 6, 8}},
	0x258B: {{shade100, 0, 0, 5, 8}},
	0x258C: {{shade100, 0, 0, 4, 8}}, // left half
	0x258D: {{shade100, 0, 0, 3, 8}},
	0x258E: {{shade100, 0, 0, 2, 8}},
	0x258F: {{shade100, 0, 0, 1, 8}},
	0x2590: {{shade100, 4, 0, 8, 8}}, // right half
	0x2594: {{shade100, 0, 0, 8, 1}}, // upper eighth
	0x2595: {{shade100, 7, 0, 8, 8}}, // right eighth

	// Shades.
	0x2591: {{shade25, 0, 0, 8, 8}},
	0x2592: {{shade50, 0, 0, 8, 8}},
	0x2593: {{shade75, 0, 0, 8, 8}},

	// Quadrants.
	0x2596: {{shade100, 0, 4, 4, 8}},
	0x2597: {{shade100, 4, 4, 8, 8}},
	0x2598: {{shade100, 0, 0, 4, 4}},
	0x2599: {{shade100, 0, 0, 4, 8}, {shade100, 4, 4, 8, 8}},
	0x259A: {{shade100, 0, 0, 4, 4}, {shade100, 4, 4, 8, 8}},
	0x259B: {{shade100, 0, 0, 8, 4}, {shade100, 0, 4, 4, 8}},
	0x259C: {{shade100, 0, 0, 8, 4}, {shade100, 4, 4, 8, 8}},
	0x259D: {{shade100, 4, 0, 8, 4}},
	0x259E: {{shade100, 4, 0, 8, 4}, {shade100, 0, 4, 4, 8}},
	0x259F: {{shade100, 4, 0, 8, 4}, {shade100, 0, 4, 8, 8}},
}

// IsBuiltin reports whether the code point has a procedural shape table.
func IsBuiltin(cp rune) bool {
	_, ok := builtinShapes[cp]
	return ok
}

// Soft font glyphs live in a reserved private use range.
const (
	softFontFirst = 0xEF20
	softFontLast  = 0xEF7F
)

// IsSoftFont reports whether the code point addresses a soft font glyph.
func IsSoftFont(cp rune) bool {
	return cp >= softFontFirst && cp <= softFontLast
}

// drawBuiltin renders the shape table of cp into a w x h premultiplied RGBA
// buffer. Returns nil, false for code points without a table.
func drawBuiltin(cp rune, w, h int) ([]uint8, bool) {
	shapes, ok := builtinShapes[cp]
	if !ok {
		return nil, false
	}

	// Strokes snap to a thickness derived from the cell height so box
	// drawing stays visible at small sizes.
	thickness := h / 16
	if thickness < 1 {
		thickness = 1
	}

	px := make([]uint8, w*h*4)
	for _, s := range shapes {
		x0 := int(s.x0) * w / 8
		x1 := int(s.x1) * w / 8
		y0 := int(s.y0) * h / 8
		y1 := int(s.y1) * h / 8
		if x0 == x1 {
			x0 -= thickness / 2
			x1 = x0 + thickness
			if x1 > w {
				x0, x1 = w-thickness, w
			}
			if x0 < 0 {
				x0 = 0
			}
		}
		if y0 == y1 {
			y0 -= thickness / 2
			y1 = y0 + thickness
			if y1 > h {
				y0, y1 = h-thickness, h
			}
			if y0 < 0 {
				y0 = 0
			}
		}

		c := shadeColors[s.shade]
		for y := y0; y < y1; y++ {
			row := y * w * 4
			for x := x0; x < x1; x++ {
				o := row + x*4
				px[o+0] = c[0]
				px[o+1] = c[1]
				px[o+2] = c[2]
				px[o+3] = 0xFF
			}
		}
	}
	return px, true
}
