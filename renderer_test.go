package termgrid

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/termgrid/backend/soft"
	"github.com/gogpu/termgrid/glyph"
)

const (
	testBlack = 0xFF000000
	testWhite = 0xFFFFFFFF
	testRed   = 0xFF0000FF
)

// testSettings describes a 120x30 cell viewport with 8x16 cells.
func testSettings() Settings {
	return Settings{
		Generation: 1,
		Font: FontSettings{
			Generation:         1,
			CellSize:           image.Pt(8, 16),
			Baseline:           12,
			Descender:          4,
			FontSizePx:         16,
			AdvanceWidth:       8,
			UnderlinePos:       13,
			UnderlineWidth:     1,
			DoubleUnderlinePos: [2]int{13, 15},
			ThinLineWidth:      1,
			StrikethroughPos:   8,
			StrikethroughWidth: 1,
			GridlineWidth:      1,
		},
		Misc: MiscSettings{
			Generation:      1,
			BackgroundColor: testBlack,
			ForegroundColor: testWhite,
		},
		TargetSize: image.Pt(960, 480),
		CellCount:  image.Pt(120, 30),
	}
}

func emptyPayload(s Settings) *Payload {
	return &Payload{
		Settings: s,
		Rows:     make([]*ShapedRow, s.CellCount.Y),
	}
}

// blockRow shapes a single full block glyph at the given column.
func blockRow(col int, cellW int) *ShapedRow {
	return &ShapedRow{
		GlyphIndices: []uint32{0x2588},
		Positions:    []float32{float32(col * cellW)},
		Mappings:     []GlyphMapping{{Face: nil, GlyphCount: 1}},
		Invalidated:  true,
	}
}

func pixelAt(t *testing.T, r *Renderer, x, y int) uint32 {
	t.Helper()
	pix, err := r.Target()
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	w := r.settings.TargetSize.X
	i := (y*w + x) * 4
	return uint32(pix[i]) | uint32(pix[i+1])<<8 | uint32(pix[i+2])<<16 | uint32(pix[i+3])<<24
}

func TestRenderValidation(t *testing.T) {
	r := New(Config{})
	if err := r.Render(nil); !errors.Is(err, ErrNilPayload) {
		t.Errorf("nil payload: got %v, want ErrNilPayload", err)
	}

	p := emptyPayload(testSettings())
	p.Settings.CellCount = image.Point{}
	p.Rows = nil
	if err := r.Render(p); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("empty cell count: got %v, want ErrInvalidSettings", err)
	}

	p = emptyPayload(testSettings())
	p.Rows = p.Rows[:10]
	if err := r.Render(p); !errors.Is(err, ErrRowCount) {
		t.Errorf("short row slice: got %v, want ErrRowCount", err)
	}
}

func TestRenderSingleGlyph(t *testing.T) {
	r := New(Config{})
	p := emptyPayload(testSettings())
	p.Rows[7] = blockRow(5, 8)

	if err := r.Render(p); err != nil {
		t.Fatalf("Render: %v", err)
	}

	cell := r.grid.Cell(5, 7)
	if cell.Shading != uint32(glyph.ShadingTextBuiltinGlyph) {
		t.Fatalf("cell (5,7) shading = %d, want builtin glyph", cell.Shading)
	}
	if w, h := 8, 16; cell.GlyphSize != uint32(w)|uint32(h)<<16 {
		t.Errorf("cell (5,7) glyph size = %#x, want %dx%d", cell.GlyphSize, w, h)
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 120; x++ {
			if x == 5 && y == 7 {
				continue
			}
			if c := r.grid.Cell(x, y); c.Shading != 0 {
				t.Fatalf("cell (%d,%d) has shading %d, want none", x, y, c.Shading)
			}
		}
	}

	// The full block paints the whole cell in the foreground color.
	if got := pixelAt(t, r, 5*8+3, 7*16+5); got != testWhite {
		t.Errorf("glyph pixel = %#08x, want white", got)
	}
	if got := pixelAt(t, r, 6*8+3, 7*16+5); got != testBlack {
		t.Errorf("neighbor pixel = %#08x, want black", got)
	}

	// A fresh renderer starts with a full dirty rect.
	if want := image.Rect(0, 0, 960, 480); r.DirtyRect() != want {
		t.Errorf("dirty = %v, want %v", r.DirtyRect(), want)
	}
}

func TestRenderIdempotent(t *testing.T) {
	ad := soft.New()
	r := New(Config{Adapter: ad})
	p := emptyPayload(testSettings())
	p.Rows[7] = blockRow(5, 8)

	if err := r.Render(p); err != nil {
		t.Fatalf("first Render: %v", err)
	}
	created := ad.Created()
	resets := r.raster.ResetCount()
	first, err := r.Target()
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	snapshot := append([]uint8(nil), first...)

	p.Rows[7].Invalidated = false
	if err := r.Render(p); err != nil {
		t.Fatalf("second Render: %v", err)
	}

	if got := ad.Created(); got != created {
		t.Errorf("second frame created resources: %+v, want %+v", got, created)
	}
	if got := r.raster.ResetCount(); got != resets {
		t.Errorf("second frame reset the atlas: %d, want %d", got, resets)
	}
	if !r.DirtyRect().Empty() {
		t.Errorf("unchanged frame dirty = %v, want empty", r.DirtyRect())
	}
	second, err := r.Target()
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	for i := range snapshot {
		if snapshot[i] != second[i] {
			t.Fatalf("pixel byte %d changed between identical frames", i)
		}
	}
}

func TestRenderFontChangeResetsAtlasOnce(t *testing.T) {
	r := New(Config{})
	p := emptyPayload(testSettings())
	p.Rows[7] = blockRow(5, 8)

	if err := r.Render(p); err != nil {
		t.Fatalf("first Render: %v", err)
	}
	if got := r.raster.ResetCount(); got != 1 {
		t.Fatalf("initial frame reset count = %d, want 1", got)
	}
	gen := r.atlas.Generation()

	p.Settings.Generation = 2
	p.Settings.Font.Generation = 2
	p.Rows[7].Invalidated = false
	if err := r.Render(p); err != nil {
		t.Fatalf("second Render: %v", err)
	}

	if got := r.raster.ResetCount(); got != 2 {
		t.Errorf("font change reset count = %d, want exactly 2", got)
	}
	if got := r.atlas.Generation(); got != gen+1 {
		t.Errorf("atlas generation = %d, want %d", got, gen+1)
	}

	// The glyph must be repopulated into the fresh atlas.
	cell := r.grid.Cell(5, 7)
	if cell.Shading != uint32(glyph.ShadingTextBuiltinGlyph) {
		t.Errorf("cell lost its glyph across the reset")
	}
	if got := pixelAt(t, r, 5*8+3, 7*16+5); got != testWhite {
		t.Errorf("glyph pixel after reset = %#08x, want white", got)
	}
}

func TestRenderDirtyRectTracksInvalidatedRows(t *testing.T) {
	r := New(Config{})
	p := emptyPayload(testSettings())
	p.Rows[3] = blockRow(5, 8)
	p.Rows[3].Invalidated = false

	if err := r.Render(p); err != nil {
		t.Fatalf("first Render: %v", err)
	}

	p.Rows[3].Invalidated = true
	if err := r.Render(p); err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if want := image.Rect(0, 3*16, 960, 4*16); r.DirtyRect() != want {
		t.Errorf("dirty = %v, want %v", r.DirtyRect(), want)
	}
}

func TestRenderUnderline(t *testing.T) {
	r := New(Config{})
	p := emptyPayload(testSettings())
	p.Rows[2] = &ShapedRow{
		GridLines:   []GridLineRange{{From: 0, To: 3, Lines: GridLineUnderline, Color: testRed}},
		Invalidated: true,
	}

	if err := r.Render(p); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := pixelAt(t, r, 4, 2*16+13); got != testRed {
		t.Errorf("underline pixel = %#08x, want red", got)
	}
	if got := pixelAt(t, r, 4, 2*16+11); got != testBlack {
		t.Errorf("above underline = %#08x, want black", got)
	}
	if got := pixelAt(t, r, 3*8+2, 2*16+13); got != testBlack {
		t.Errorf("past range end = %#08x, want black", got)
	}
}

func TestRenderCursor(t *testing.T) {
	r := New(Config{})
	p := emptyPayload(testSettings())
	p.CursorRect = [4]int{2, 1, 3, 2}
	p.CursorColor = testRed

	if err := r.Render(p); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := pixelAt(t, r, 2*8+4, 1*16+8); got != testRed {
		t.Errorf("cursor pixel = %#08x, want red", got)
	}
	if got := pixelAt(t, r, 3*8+4, 1*16+8); got != testBlack {
		t.Errorf("outside cursor = %#08x, want black", got)
	}
}

func TestRenderPostStageOnCPU(t *testing.T) {
	r := New(Config{})
	p := emptyPayload(testSettings())
	p.Settings.Misc.UseRetroEffect = true

	if err := r.Render(p); err != nil {
		t.Fatalf("Render: %v", err)
	}
	// The CPU compositor cannot run post shaders; the frame still
	// renders and never demands continuous redraw.
	if r.RequiresContinuousRedraw() {
		t.Error("CPU path reports continuous redraw")
	}
}

func TestRenderMissingCustomShaderWarns(t *testing.T) {
	r := New(Config{})
	p := emptyPayload(testSettings())
	p.Settings.Misc.CustomShaderPath = "testdata/does-not-exist.wgsl"

	var warned string
	p.Warning = func(err error, ctx string) {
		if err == nil {
			t.Error("warning callback got nil error")
		}
		warned = ctx
	}

	if err := r.Render(p); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if warned != p.Settings.Misc.CustomShaderPath {
		t.Errorf("warning context = %q, want the shader path", warned)
	}
}

func TestReleaseResourcesForcesRebuild(t *testing.T) {
	r := New(Config{})
	p := emptyPayload(testSettings())
	p.Rows[7] = blockRow(5, 8)

	if err := r.Render(p); err != nil {
		t.Fatalf("first Render: %v", err)
	}
	r.ReleaseResources()

	p.Rows[7].Invalidated = false
	if err := r.Render(p); err != nil {
		t.Fatalf("Render after release: %v", err)
	}
	if got := pixelAt(t, r, 5*8+3, 7*16+5); got != testWhite {
		t.Errorf("glyph pixel after release = %#08x, want white", got)
	}
	if want := image.Rect(0, 0, 960, 480); r.DirtyRect() != want {
		t.Errorf("dirty after release = %v, want full target", r.DirtyRect())
	}
}
