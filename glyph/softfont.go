package glyph

// drawSoftFont expands the packed bit pattern of soft font glyph cp into a
// premultiplied RGBA bitmap of the soft font cell size. Each pattern row is
// one uint16 with the leftmost pixel in the most significant bit.
//
// Returns nil, false when the code point indexes outside the configured
// pattern table. That is a benign stale reference (someone typed a U+EF2x
// character without a soft font loaded), so the caller degrades the glyph
// to whitespace instead of erroring.
func drawSoftFont(cp rune, pattern []uint16, cw, ch int) ([]uint8, bool) {
	if cw <= 0 || ch <= 0 || cw > 16 {
		return nil, false
	}
	idx := int(cp) - softFontFirst
	lo := ch * idx
	if lo < 0 || lo+ch > len(pattern) {
		return nil, false
	}

	px := make([]uint8, cw*ch*4)
	for y, bits := range pattern[lo : lo+ch] {
		row := y * cw * 4
		for x := 0; x < cw; x++ {
			if bits&0x8000 != 0 {
				o := row + x*4
				px[o+0] = 0xFF
				px[o+1] = 0xFF
				px[o+2] = 0xFF
				px[o+3] = 0xFF
			}
			bits <<= 1
		}
	}
	return px, true
}
