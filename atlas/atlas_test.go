package atlas

import (
	"math/bits"
	"testing"
)

func TestNextSize(t *testing.T) {
	tests := []struct {
		name        string
		cellArea    uint32
		targetArea  uint32
		currentArea uint32
		wantW       uint32
		wantH       uint32
	}{
		{
			// 95 cells of 10x20 need far less than the floor.
			name:       "initial allocation clamps to MinArea",
			cellArea:   200,
			targetArea: 1920 * 1080,
			wantW:      1024,
			wantH:      1024,
		},
		{
			name:        "growth doubles the area",
			cellArea:    200,
			targetArea:  1920 * 1080,
			currentArea: 1024 * 1024,
			wantW:       2048,
			wantH:       1024,
		},
		{
			// Growth demand is capped at 125% of the render target.
			name:        "target area caps growth",
			cellArea:    200,
			targetArea:  1024 * 1024,
			currentArea: 2048 * 1024,
			wantW:       2048,
			wantH:       1024,
		},
		{
			name:        "never exceeds MaxArea",
			cellArea:    200,
			targetArea:  ^uint32(0),
			currentArea: MaxArea,
			wantW:       16384,
			wantH:       16384,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := NextSize(tt.cellArea, tt.targetArea, tt.currentArea)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("NextSize() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestNextSizeShape(t *testing.T) {
	// Whatever the inputs, the result is a power of two per dimension,
	// square or 2:1, and within the global area bounds.
	inputs := []struct{ cell, target, current uint32 }{
		{1, 1, 0},
		{200, 1920 * 1080, 0},
		{200, 1920 * 1080, 1 << 20},
		{200, 1920 * 1080, 1 << 21},
		{3000, 3840 * 2160, 1 << 22},
		{64 * 128, 800 * 600, 0},
		{^uint32(0), ^uint32(0), ^uint32(0)},
	}

	for _, in := range inputs {
		w, h := NextSize(in.cell, in.target, in.current)
		if bits.OnesCount32(w) != 1 || bits.OnesCount32(h) != 1 {
			t.Errorf("NextSize(%d,%d,%d) = %dx%d, dims not powers of two",
				in.cell, in.target, in.current, w, h)
		}
		if w != h && w != 2*h {
			t.Errorf("NextSize(%d,%d,%d) = %dx%d, want square or 2:1",
				in.cell, in.target, in.current, w, h)
		}
		area := uint64(w) * uint64(h)
		if area < MinArea || area > MaxArea {
			t.Errorf("NextSize(%d,%d,%d) area %d outside [%d,%d]",
				in.cell, in.target, in.current, area, uint64(MinArea), uint64(MaxArea))
		}
	}
}

func TestAtlas_PackAndWrite(t *testing.T) {
	a := New(64, 64)
	a.ClearDirty()

	x, y, ok := a.Pack(4, 2)
	if !ok {
		t.Fatal("failed to pack rect")
	}

	rgba := make([]uint8, 4*2*4)
	for i := range rgba {
		rgba[i] = 0xAB
	}
	a.Write(x, y, 4, 2, rgba)

	dirty, ok := a.Dirty()
	if !ok {
		t.Fatal("expected dirty rect after write")
	}
	if dirty.Dx() != 4 || dirty.Dy() != 2 {
		t.Errorf("dirty rect = %v, want 4x2", dirty)
	}

	px := a.Pixels()
	off := (y*a.Width() + x) * 4
	if px[off] != 0xAB {
		t.Errorf("pixel at pack position = %#x, want 0xAB", px[off])
	}

	a.ClearDirty()
	if _, ok := a.Dirty(); ok {
		t.Error("expected clean atlas after ClearDirty")
	}
}

func TestAtlas_DirtyUnion(t *testing.T) {
	a := New(64, 64)
	a.ClearDirty()

	buf := make([]uint8, 8*8*4)
	x1, y1, _ := a.Pack(8, 8)
	a.Write(x1, y1, 8, 8, buf)
	x2, y2, _ := a.Pack(8, 8)
	a.Write(x2, y2, 8, 8, buf)

	dirty, ok := a.Dirty()
	if !ok {
		t.Fatal("expected dirty rect")
	}
	if dirty.Min.X > x1 || dirty.Max.X < x2+8 {
		t.Errorf("dirty rect %v does not cover both writes", dirty)
	}
	_ = y2
}

func TestAtlas_Reset(t *testing.T) {
	a := New(32, 32)
	gen := a.Generation()

	a.Pack(10, 10)
	a.Reset(64, 64)

	if a.Width() != 64 || a.Height() != 64 {
		t.Errorf("size after reset = %dx%d, want 64x64", a.Width(), a.Height())
	}
	if a.Generation() != gen+1 {
		t.Errorf("generation = %d, want %d", a.Generation(), gen+1)
	}
	if a.Utilization() != 0 {
		t.Error("expected empty atlas after reset")
	}

	// The whole new atlas needs uploading.
	dirty, ok := a.Dirty()
	if !ok || dirty.Dx() != 64 || dirty.Dy() != 64 {
		t.Errorf("dirty rect after reset = %v, want full atlas", dirty)
	}

	x, y, ok := a.Pack(10, 10)
	if !ok || x != 0 || y != 0 {
		t.Errorf("first pack after reset = (%d,%d,%v), want (0,0,true)", x, y, ok)
	}
}

func TestAtlas_PackFull(t *testing.T) {
	a := New(16, 16)

	if _, _, ok := a.Pack(32, 8); ok {
		t.Error("expected oversized pack to fail")
	}
	if _, _, ok := a.Pack(16, 16); !ok {
		t.Error("expected exact-size pack to succeed")
	}
	if _, _, ok := a.Pack(1, 1); ok {
		t.Error("expected pack into full atlas to fail")
	}
}
