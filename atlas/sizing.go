package atlas

import "math/bits"

// Atlas area bounds in pixels.
const (
	// MinArea is the smallest atlas ever allocated (1024x1024).
	MinArea = 1 << 20

	// MaxArea caps the atlas at the largest texture size common
	// hardware supports (16384x16384).
	MaxArea = 16384 * 16384
)

// glyphReserve is the number of glyph slots the atlas is sized to hold at
// minimum. It covers the printable ASCII range with some slack.
const glyphReserve = 95

// NextSize computes the dimensions of the next atlas generation.
//
// cellArea is the area of one terminal cell in pixels, targetArea the area
// of the render target, and currentArea the area of the current atlas
// (0 before the first allocation). The result is always a power of two in
// each dimension, with width equal to or double the height, so that
// repeated growth steps alternate between square and 2:1 shapes.
//
// The returned area at least doubles the current one and covers
// glyphReserve cells, but never exceeds the render target area by more
// than 25 percent. Both bounds are clamped to [MinArea, MaxArea].
func NextSize(cellArea, targetArea, currentArea uint32) (w, h uint32) {
	minByFont := uint64(cellArea) * glyphReserve
	minByGrowth := uint64(currentArea) * 2
	maxByFont := uint64(targetArea) + uint64(targetArea)/4

	area := minByFont
	if minByGrowth > area {
		area = minByGrowth
	}
	if maxByFont < area {
		area = maxByFont
	}
	if area < MinArea {
		area = MinArea
	}
	if area > MaxArea {
		area = MaxArea
	}

	// Round up to the next power of two and split the exponent between
	// the two dimensions, giving the width the larger half.
	index := bits.Len64(area-1) - 1
	w = 1 << ((index + 2) / 2)
	h = 1 << ((index + 1) / 2)
	return w, h
}
