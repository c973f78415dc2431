package atlas

import "image"

// Atlas is a CPU side glyph atlas: a shelf packed pixel rectangle store
// whose contents are mirrored into a GPU texture by the owner.
//
// Pixels are premultiplied RGBA8, stored row-major. Texcoords handed out by
// Pack stay valid until Reset is called; the compositor samples the texture
// with texel-exact coordinates, so no padding is inserted between glyphs.
//
// Atlas is not safe for concurrent use.
type Atlas struct {
	width  int
	height int
	alloc  *ShelfAllocator
	pixels []uint8

	// dirty is the pixel rect written since ClearDirty, empty if none.
	dirty image.Rectangle

	// generation increments on every Reset. Cached texcoords from an
	// older generation must be discarded.
	generation uint32
}

// New creates an atlas with the given dimensions.
func New(width, height int) *Atlas {
	a := &Atlas{}
	a.Reset(width, height)
	a.generation = 0
	return a
}

// Width returns the atlas width in pixels.
func (a *Atlas) Width() int { return a.width }

// Height returns the atlas height in pixels.
func (a *Atlas) Height() int { return a.height }

// Area returns the total atlas area in pixels.
func (a *Atlas) Area() uint32 { return uint32(a.width) * uint32(a.height) }

// Generation returns the current atlas generation.
// It increments on every Reset.
func (a *Atlas) Generation() uint32 { return a.generation }

// Utilization returns the fraction of atlas space currently allocated.
func (a *Atlas) Utilization() float64 { return a.alloc.Utilization() }

// Pack reserves a w x h pixel rectangle.
// Returns its position and true, or -1, -1, false when the atlas is full.
// A full atlas must be Reset to a larger size before retrying.
func (a *Atlas) Pack(w, h int) (x, y int, ok bool) {
	return a.alloc.Allocate(w, h)
}

// CanFit reports whether a w x h rectangle could still be packed.
func (a *Atlas) CanFit(w, h int) bool {
	return a.alloc.CanFit(w, h)
}

// Write copies tightly packed RGBA8 rows into the rectangle at (x, y) and
// extends the dirty rect to cover it. The rectangle must have been obtained
// from Pack and rgba must hold w*h*4 bytes.
func (a *Atlas) Write(x, y, w, h int, rgba []uint8) {
	if w <= 0 || h <= 0 {
		return
	}
	for row := 0; row < h; row++ {
		dst := ((y+row)*a.width + x) * 4
		src := row * w * 4
		copy(a.pixels[dst:dst+w*4], rgba[src:src+w*4])
	}
	a.dirty = a.dirty.Union(image.Rect(x, y, x+w, y+h))
}

// Pixels returns the backing pixel store. The slice is owned by the atlas
// and is reallocated by Reset.
func (a *Atlas) Pixels() []uint8 { return a.pixels }

// Dirty returns the pixel rect written since the last ClearDirty.
// ok is false when nothing changed.
func (a *Atlas) Dirty() (r image.Rectangle, ok bool) {
	return a.dirty, !a.dirty.Empty()
}

// ClearDirty marks the atlas as fully uploaded.
func (a *Atlas) ClearDirty() {
	a.dirty = image.Rectangle{}
}

// Reset discards all allocations and pixel data and resizes the atlas.
// The whole new atlas is marked dirty and the generation increments, which
// invalidates every previously returned texcoord.
func (a *Atlas) Reset(width, height int) {
	a.width = width
	a.height = height
	a.alloc = NewShelfAllocator(width, height, 0)
	a.pixels = make([]uint8, width*height*4)
	a.dirty = image.Rect(0, 0, width, height)
	a.generation++
}
