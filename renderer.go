package termgrid

import (
	"fmt"
	"image"
	"math"
	"os"

	"github.com/gogpu/termgrid/atlas"
	"github.com/gogpu/termgrid/compose"
	"github.com/gogpu/termgrid/glyph"
	"github.com/gogpu/termgrid/gpucore"
	"github.com/gogpu/termgrid/grid"
)

// Config configures a Renderer.
type Config struct {
	// Adapter is the GPU backend. Nil selects the CPU compositor and
	// disables post processing shaders.
	Adapter gpucore.Adapter

	// AtlasSize is the initial glyph atlas edge in pixels. The atlas
	// grows on demand from here.
	AtlasSize int
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{AtlasSize: 256}
}

// Renderer turns per-frame payloads of shaped terminal rows into a
// composed pixel target. It owns the glyph atlas, the cell grid and the
// compositor, and carries all of them across frames so an unchanged
// frame costs almost nothing.
type Renderer struct {
	cfg    Config
	comp   *compose.Compositor
	post   *compose.PostStage
	atlas  *atlas.Atlas
	cache  *glyph.Cache
	raster *glyph.Rasterizer

	grid  *grid.Grid
	spans *grid.RowSpans
	quads grid.QuadList

	settings     Settings
	haveSettings bool
	deps         fontDependents

	colorGen     uint32
	haveColorGen bool

	rowDirty []bool
	dirty    image.Rectangle
}

// New returns a renderer backed by cfg.Adapter. The zero Config is
// usable and renders on the CPU.
func New(cfg Config) *Renderer {
	if cfg.AtlasSize <= 0 {
		cfg.AtlasSize = DefaultConfig().AtlasSize
	}
	c := glyph.NewCache()
	a := atlas.New(cfg.AtlasSize, cfg.AtlasSize)
	return &Renderer{
		cfg:    cfg,
		comp:   compose.NewCompositor(cfg.Adapter),
		atlas:  a,
		cache:  c,
		raster: glyph.NewRasterizer(c, a),
		grid:   grid.New(0, 0),
		spans:  grid.NewRowSpans(0),
	}
}

// Render composes one frame. Shader failures degrade with a warning
// through the payload callback; any returned error is fatal to the
// frame but leaves the renderer usable.
func (r *Renderer) Render(p *Payload) error {
	if p == nil {
		return ErrNilPayload
	}
	s := p.Settings
	if s.CellCount.X <= 0 || s.CellCount.Y <= 0 ||
		s.Font.CellSize.X <= 0 || s.Font.CellSize.Y <= 0 ||
		s.TargetSize.X <= 0 || s.TargetSize.Y <= 0 {
		return ErrInvalidSettings
	}
	if len(p.Rows) != s.CellCount.Y {
		return fmt.Errorf("%w: have %d rows, grid is %d", ErrRowCount, len(p.Rows), s.CellCount.Y)
	}

	full := r.applySettings(p)

	// An atlas reset during population invalidates every texture
	// coordinate stamped before it, so the pass runs again from
	// scratch. The retry cannot reset again short of atlas exhaustion,
	// which is fatal.
	for pass := 0; pass < 2; pass++ {
		resets := r.raster.ResetCount()
		if err := r.populate(p, full); err != nil {
			return err
		}
		if r.raster.ResetCount() == resets {
			break
		}
		full = true
	}

	if err := r.comp.Composite(r.params(), r.grid, r.quads.Quads(), r.atlas); err != nil {
		return err
	}

	if r.post != nil {
		t := float32(math.Mod(p.Time, 1000))
		if err := r.post.Apply(r.comp.TargetTexture(), s.TargetSize, t); err != nil {
			r.warn(p, err, "post shader")
			r.post.Release()
			r.post = nil
		}
		full = true
	}

	r.updateDirty(full)
	return nil
}

// RequiresContinuousRedraw reports whether the active post processing
// shader animates over time, in which case the caller should keep
// rendering frames even without content changes.
func (r *Renderer) RequiresContinuousRedraw() bool {
	return r.post != nil && r.post.RequiresContinuousRedraw()
}

// DirtyRect returns the target area changed by the last Render, for
// partial presentation. It is the union of the ink spans of invalidated
// rows, or the full target after a settings change, an atlas reset or a
// post processing pass.
func (r *Renderer) DirtyRect() image.Rectangle { return r.dirty }

// Target returns the composed frame as RGBA pixels. On the GPU path
// this is a readback and should only be used by tests and screenshots.
func (r *Renderer) Target() ([]uint8, error) { return r.comp.Target() }

// TargetTexture returns the GPU target texture, 0 on the CPU path.
func (r *Renderer) TargetTexture() gpucore.TextureID { return r.comp.TargetTexture() }

// ReleaseResources drops every GPU resource, keeping CPU side caches.
// The next Render rebuilds the pipeline and resources from scratch.
func (r *Renderer) ReleaseResources() {
	r.comp.Release()
	if r.post != nil {
		r.post.Release()
		r.post = nil
	}
	// Forces the next frame through the full settings path, which also
	// recreates the post stage.
	r.haveSettings = false
}

// applySettings diffs the payload settings against the retained snapshot
// and refreshes whatever depends on the changed parts. It reports
// whether the frame must be rebuilt in full.
func (r *Renderer) applySettings(p *Payload) bool {
	s := p.Settings
	if r.haveSettings && s.Generation == r.settings.Generation {
		return false
	}
	fresh := !r.haveSettings
	fontChanged := fresh || s.Font.Generation != r.settings.Font.Generation
	miscChanged := fresh || s.Misc.Generation != r.settings.Misc.Generation
	cellsChanged := fresh || s.CellCount != r.settings.CellCount
	targetChanged := fresh || s.TargetSize != r.settings.TargetSize
	r.settings = s
	r.haveSettings = true

	if fontChanged {
		r.raster.SetMetrics(metricsFrom(s.Font))
		r.deps = deriveFontDependents(s.Font)
	}
	if fontChanged || targetChanged {
		r.raster.SetTargetArea(uint32(s.TargetSize.X) * uint32(s.TargetSize.Y))
	}
	if fontChanged {
		// Deferred to the first glyph of the frame so empty frames do
		// not churn the atlas.
		r.raster.MarkForReset()
	}
	if miscChanged {
		// The post stage must exist before the frame is composed, so
		// its pipeline never samples a stale target.
		r.recreatePostStage(p)
	}
	if cellsChanged {
		r.grid.Resize(s.CellCount.X, s.CellCount.Y)
		r.spans.Resize(s.CellCount.Y)
	}
	return true
}

// populate rebuilds the cell grid and decoration quads from the payload.
// When full is false only invalidated rows are restamped.
func (r *Renderer) populate(p *Payload, full bool) error {
	s := &r.settings
	rows := s.CellCount.Y

	colorsChanged := full || !r.haveColorGen || p.ColorBitmapGeneration != r.colorGen
	r.colorGen = p.ColorBitmapGeneration
	r.haveColorGen = true

	if len(r.rowDirty) != rows {
		r.rowDirty = make([]bool, rows)
	}
	r.quads.Reset()
	r.spans.Reset()

	ch := s.Font.CellSize.Y
	for y := 0; y < rows; y++ {
		row := p.Rows[y]
		dirty := full || (row != nil && row.Invalidated)
		r.rowDirty[y] = dirty

		if dirty || colorsChanged {
			r.stampColors(y, row)
		}
		if dirty {
			r.clearRowGlyphs(y)
			// Background repaints cover the whole cell row.
			r.spans.Extend(y, y*ch, (y+1)*ch)
			if row != nil {
				if err := r.stampRow(y, row); err != nil {
					return err
				}
				if row.Bitmap != nil {
					if err := r.stampBitmap(y, row); err != nil {
						return err
					}
				}
			}
		}
		if row != nil {
			r.emitGridLines(y, row)
		}
	}

	r.emitCursor(p)
	return nil
}

func (r *Renderer) stampColors(y int, row *ShapedRow) {
	s := &r.settings
	for x := 0; x < s.CellCount.X; x++ {
		bg := s.Misc.BackgroundColor
		fg := s.Misc.ForegroundColor
		if row != nil {
			if x < len(row.Background) {
				bg = row.Background[x]
			}
			if x < len(row.Foreground) {
				fg = row.Foreground[x]
			}
		}
		r.grid.SetColors(x, y, bg, fixContrast(bg, fg, s.Misc.MinimumContrast))
	}
}

// clearRowGlyphs wipes the glyph fields of a row, folding the vertical
// extent of the outgoing ink into the row span so overhang from removed
// glyphs is repainted.
func (r *Renderer) clearRowGlyphs(y int) {
	ch := r.settings.Font.CellSize.Y
	rowTop := y * ch
	for x := 0; x < r.settings.CellCount.X; x++ {
		c := r.grid.Cell(x, y)
		if c == nil || c.Shading == uint32(glyph.ShadingDefault) {
			continue
		}
		_, oy := grid.UnpackI16(c.GlyphOrigin)
		_, h := grid.UnpackU16(c.GlyphSize)
		r.spans.Extend(y, rowTop+oy, rowTop+oy+h)
		c.GlyphTex = 0
		c.GlyphOrigin = 0
		c.GlyphSize = 0
		c.Shading = 0
	}
}

func (r *Renderer) stampRow(y int, row *ShapedRow) error {
	i := 0
	for _, m := range row.Mappings {
		end := i + m.GlyphCount
		if end > len(row.GlyphIndices) {
			end = len(row.GlyphIndices)
		}
		for ; i < end; i++ {
			gi := row.GlyphIndices[i]
			penX := 0
			if i < len(row.Positions) {
				penX = int(row.Positions[i])
			}
			if m.Face == nil && gi >= 0xD800 && gi <= 0xDBFF && i+1 < end {
				if lo := row.GlyphIndices[i+1]; lo >= 0xDC00 && lo <= 0xDFFF {
					gi = 0x10000 + (gi-0xD800)<<10 + (lo - 0xDC00)
					i++
				}
			}
			e, err := r.raster.Glyph(m.Face, row.Rendition, gi)
			if err != nil {
				return err
			}
			if e.Shading == glyph.ShadingDefault {
				continue
			}
			r.stampEntry(y, penX, e)
		}
	}
	return nil
}

// stampEntry records a rasterized glyph in every cell its ink covers.
// Each covered cell samples its own slice of the glyph rect, so the ink
// blends with that cell's colors. The cell under the pen position always
// wins; spill into neighbors only lands on cells without a glyph.
func (r *Renderer) stampEntry(y, penX int, e *glyph.Entry) {
	f := &r.settings.Font
	cw := f.CellSize.X
	if e.Size.X <= 0 || e.Size.Y <= 0 || cw <= 0 {
		return
	}
	rowTop := y * f.CellSize.Y
	gx := penX + e.Offset.X
	gy := rowTop + f.Baseline + e.Offset.Y

	nominal := floorDiv(penX*2+cw, cw*2)
	c0 := floorDiv(gx, cw)
	c1 := floorDiv(gx+e.Size.X-1, cw)
	for ci := c0; ci <= c1; ci++ {
		cell := r.grid.Cell(ci, y)
		if cell == nil {
			continue
		}
		if ci != nominal && cell.Shading != uint32(glyph.ShadingDefault) {
			continue
		}
		cell.GlyphTex = grid.PackU16(e.Texcoord.X, e.Texcoord.Y)
		cell.GlyphOrigin = grid.PackI16(gx-ci*cw, gy-rowTop)
		cell.GlyphSize = grid.PackU16(e.Size.X, e.Size.Y)
		cell.Shading = uint32(e.Shading)
	}
	r.spans.Extend(y, gy, gy+e.Size.Y)
}

func (r *Renderer) stampBitmap(y int, row *ShapedRow) error {
	b := row.Bitmap
	e, err := r.raster.InlineBitmap(b.Revision, b.RGBA, b.Width, b.Height)
	if err != nil {
		return err
	}
	f := &r.settings.Font
	cw := f.CellSize.X
	rowTop := y * f.CellSize.Y
	left := b.OriginColumn * cw
	c1 := floorDiv(left+e.Size.X-1, cw)
	for ci := b.OriginColumn; ci <= c1; ci++ {
		cell := r.grid.Cell(ci, y)
		if cell == nil {
			continue
		}
		// Inline bitmaps sit over any text in the covered cells.
		cell.GlyphTex = grid.PackU16(e.Texcoord.X, e.Texcoord.Y)
		cell.GlyphOrigin = grid.PackI16(left-ci*cw, 0)
		cell.GlyphSize = grid.PackU16(e.Size.X, e.Size.Y)
		cell.Shading = uint32(e.Shading)
	}
	r.spans.Extend(y, rowTop, rowTop+e.Size.Y)
	return nil
}

// emitGridLines turns a row's decoration ranges into quads. Double
// height rows lay decorations out in doubled block coordinates and clip
// them to the half of the block this row shows.
func (r *Renderer) emitGridLines(y int, row *ShapedRow) {
	s := &r.settings
	f := &s.Font
	cw, ch := f.CellSize.X, f.CellSize.Y
	rowTop := y * ch
	hs := row.Rendition.HorizontalShift()
	vs := row.Rendition.VerticalShift()
	blockTop := rowTop
	if row.Rendition == glyph.DoubleHeightBottom {
		blockTop = rowTop - ch
	}
	clip := image.Rect(0, rowTop, s.TargetSize.X, rowTop+ch)

	for _, gr := range row.GridLines {
		if gr.To <= gr.From {
			continue
		}
		x0 := gr.From * cw << hs
		x1 := gr.To * cw << hs

		horiz := func(pos, width int, shading glyph.ShadingType) {
			top := blockTop + pos<<vs
			r.pushQuad(y, image.Rect(x0, top, x1, top+width<<vs), clip, gr.Color, shading)
		}

		if gr.Lines&GridLineUnderline != 0 {
			horiz(f.UnderlinePos, f.UnderlineWidth, glyph.ShadingSolidLine)
		}
		if gr.Lines&GridLineDoubleUnderline != 0 {
			horiz(f.DoubleUnderlinePos[0], f.ThinLineWidth, glyph.ShadingSolidLine)
			horiz(f.DoubleUnderlinePos[1], f.ThinLineWidth, glyph.ShadingSolidLine)
		}
		if gr.Lines&GridLineDottedUnderline != 0 {
			horiz(f.UnderlinePos, f.UnderlineWidth, glyph.ShadingDottedLine)
		}
		if gr.Lines&GridLineDashedUnderline != 0 {
			horiz(f.UnderlinePos, f.UnderlineWidth, glyph.ShadingDashedLine)
		}
		if gr.Lines&GridLineCurlyUnderline != 0 {
			horiz(r.deps.curlyTop, r.deps.curlyHeight, glyph.ShadingCurlyLine)
		}
		if gr.Lines&GridLineStrikethrough != 0 {
			horiz(f.StrikethroughPos, f.StrikethroughWidth, glyph.ShadingSolidLine)
		}
		if gr.Lines&GridLineTop != 0 {
			horiz(0, f.GridlineWidth, glyph.ShadingSolidLine)
		}
		if gr.Lines&GridLineBottom != 0 {
			horiz(ch-f.GridlineWidth, f.GridlineWidth, glyph.ShadingSolidLine)
		}
		if gr.Lines&GridLineLeft != 0 {
			for c := gr.From; c < gr.To; c++ {
				cx := c * cw << hs
				r.pushQuad(y, image.Rect(cx, rowTop, cx+f.GridlineWidth, rowTop+ch), clip, gr.Color, glyph.ShadingSolidLine)
			}
		}
		if gr.Lines&GridLineRight != 0 {
			for c := gr.From; c < gr.To; c++ {
				cx := (c+1)*cw<<hs - f.GridlineWidth
				r.pushQuad(y, image.Rect(cx, rowTop, cx+f.GridlineWidth, rowTop+ch), clip, gr.Color, glyph.ShadingSolidLine)
			}
		}
	}
}

func (r *Renderer) emitCursor(p *Payload) {
	if p.CursorColor == 0 {
		return
	}
	f := &r.settings.Font
	x0, y0, x1, y1 := p.CursorRect[0], p.CursorRect[1], p.CursorRect[2], p.CursorRect[3]
	rect := image.Rect(x0*f.CellSize.X, y0*f.CellSize.Y, x1*f.CellSize.X, y1*f.CellSize.Y)
	if rect.Empty() {
		return
	}
	r.quads.Append(rect, p.CursorColor, glyph.ShadingSolidLine)
	for y := y0; y < y1; y++ {
		r.spans.Extend(y, rect.Min.Y, rect.Max.Y)
	}
}

func (r *Renderer) pushQuad(y int, rect, clip image.Rectangle, color uint32, shading glyph.ShadingType) {
	rect = rect.Intersect(clip)
	if rect.Empty() {
		return
	}
	r.quads.Append(rect, color, shading)
	r.spans.Extend(y, rect.Min.Y, rect.Max.Y)
}

func (r *Renderer) updateDirty(full bool) {
	s := &r.settings
	target := image.Rect(0, 0, s.TargetSize.X, s.TargetSize.Y)
	if full {
		r.dirty = target
		return
	}
	var d image.Rectangle
	for y, dirty := range r.rowDirty {
		if !dirty {
			continue
		}
		if top, bottom, ok := r.spans.Span(y); ok {
			d = d.Union(image.Rect(0, top, s.TargetSize.X, bottom))
		}
	}
	r.dirty = d.Intersect(target)
}

func (r *Renderer) params() compose.Params {
	s := &r.settings
	return compose.Params{
		TargetSize:       s.TargetSize,
		CellSize:         s.Font.CellSize,
		Cols:             s.CellCount.X,
		Rows:             s.CellCount.Y,
		FillColor:        s.Misc.BackgroundColor,
		EnhancedContrast: s.Misc.EnhancedContrast,
		UnderlineWidth:   s.Font.UnderlineWidth,
		CurlyHalfHeight:  r.deps.curlyHalfHeight,
		CurlyFrequency:   r.deps.curlyFrequency,
		DotSize:          r.deps.dotSize,
	}
}

// recreatePostStage rebuilds the post processing stage from the current
// misc settings. Failures degrade to plain rendering with a warning,
// never a render error.
func (r *Renderer) recreatePostStage(p *Payload) {
	if r.post != nil {
		r.post.Release()
		r.post = nil
	}
	m := &r.settings.Misc

	var source, label string
	switch {
	case m.CustomShaderPath != "":
		data, err := os.ReadFile(m.CustomShaderPath)
		if err != nil {
			r.warn(p, fmt.Errorf("termgrid: loading custom shader: %w", err), m.CustomShaderPath)
			return
		}
		source, label = string(data), m.CustomShaderPath
	case m.UseRetroEffect:
		source, label = compose.RetroShader(), "retro"
	default:
		return
	}

	if !r.comp.GPUActive() {
		Logger().Debug("post shader skipped on CPU compositor", "shader", label)
		return
	}
	stage, err := compose.NewPostStage(r.cfg.Adapter, source, label)
	if err != nil {
		r.warn(p, err, label)
		return
	}
	r.post = stage
}

func (r *Renderer) warn(p *Payload, err error, ctx string) {
	Logger().Warn("recoverable render failure", "context", ctx, "error", err)
	if p != nil && p.Warning != nil {
		p.Warning(err, ctx)
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
