package compose

import "math"

// Colors are 32 bit 0xAABBGGRR, matching RGBA8 byte order in memory.

func unpackColor(c uint32) (r, g, b, a float32) {
	r = float32(c&0xFF) / 255
	g = float32(c>>8&0xFF) / 255
	b = float32(c>>16&0xFF) / 255
	a = float32(c>>24&0xFF) / 255
	return
}

func packColor(r, g, b, a float32) uint32 {
	return uint32(clamp01(r)*255+0.5) |
		uint32(clamp01(g)*255+0.5)<<8 |
		uint32(clamp01(b)*255+0.5)<<16 |
		uint32(clamp01(a)*255+0.5)<<24
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// enhancedContrast boosts thin antialiased coverage the way DirectWrite
// does. k of zero is the identity mapping.
func enhancedContrast(coverage, k float32) float32 {
	return coverage * (k + 1) / (coverage*k + 1)
}

func mix(x, y, t float32) float32 {
	return x + (y-x)*t
}

// blendGrayscale mixes foreground over background by a single coverage
// value after contrast enhancement. The result is opaque.
func blendGrayscale(bg, fg uint32, coverage, contrast float32) uint32 {
	a := enhancedContrast(clamp01(coverage), contrast)
	br, bgc, bb, _ := unpackColor(bg)
	fr, fg2, fb, _ := unpackColor(fg)
	return packColor(mix(br, fr, a), mix(bgc, fg2, a), mix(bb, fb, a), 1)
}

// blendClearType mixes each channel by its own coverage value. The atlas
// stores identical coverage in all channels today, so this collapses to
// grayscale until a subpixel rasterizer fills them independently.
func blendClearType(bg, fg uint32, cr, cg, cb, contrast float32) uint32 {
	ar := enhancedContrast(clamp01(cr), contrast)
	ag := enhancedContrast(clamp01(cg), contrast)
	ab := enhancedContrast(clamp01(cb), contrast)
	br, bgc, bb, _ := unpackColor(bg)
	fr, fg2, fb, _ := unpackColor(fg)
	return packColor(mix(br, fr, ar), mix(bgc, fg2, ag), mix(bb, fb, ab), 1)
}

// blendPassthrough composites a premultiplied source sample over the
// background. Used for color glyphs whose pixels carry their own color.
func blendPassthrough(bg uint32, sr, sg, sb, sa float32) uint32 {
	br, bgc, bb, _ := unpackColor(bg)
	inv := 1 - sa
	return packColor(sr+br*inv, sg+bgc*inv, sb+bb*inv, 1)
}

// builtinPatternOn evaluates the procedural shade pattern for one pixel.
// The glyph sample's channels select the flags: R stretches the dots out
// to quarter density, G inverts, B forces full coverage. Plain flags give
// a half density checkerboard.
func builtinPatternOn(px, py, dotSize int, stretch, invert, fill bool) bool {
	d := dotSize
	if d < 1 {
		d = 1
	}
	var on bool
	if stretch {
		on = (px/d)%2 == 0 && (py/d)%2 == 0
	} else {
		on = ((px/d)+(py/d))%2 == 0
	}
	if invert {
		on = !on
	}
	if fill {
		on = true
	}
	return on
}

// dottedOn reports whether a dotted line covers pixel column px.
// Dot and gap lengths are both twice the stroke width.
func dottedOn(px, strokeWidth int) bool {
	w := 2 * strokeWidth
	if w < 2 {
		w = 2
	}
	if px < 0 {
		px = -px + w // keep the phase stable across zero
	}
	return (px/w)%2 == 0
}

// dashedOn reports whether a dashed line covers pixel column px.
// Dashes span the first half of every cell column.
func dashedOn(px, cellWidth int) bool {
	if cellWidth < 2 {
		return true
	}
	m := px % cellWidth
	if m < 0 {
		m += cellWidth
	}
	return m < cellWidth/2
}

// curlyCoverage returns antialiased coverage of a sine wave stroke at the
// quad-local position. halfHeight is half the wave band, frequency is in
// radians per pixel and the stroke is strokeWidth thick.
func curlyCoverage(px, localY int, halfHeight, frequency float32, strokeWidth int) float32 {
	halfStroke := float32(strokeWidth) / 2
	amp := halfHeight - halfStroke
	if amp < 0 {
		amp = 0
	}
	wave := halfHeight + amp*float32(math.Sin(float64(float32(px)*frequency)))
	d := float32(math.Abs(float64(wave - (float32(localY) + 0.5))))
	return clamp01(halfStroke + 0.5 - d)
}
