package glyph

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/gogpu/termgrid/atlas"
	"github.com/gogpu/termgrid/cache"
)

// ErrAtlasExhausted is returned when an allocation still fails after one
// atlas reset and growth step. The sizing policy guarantees success on
// retry for any glyph no larger than a bounded multiple of the cell size,
// so hitting this means the policy's invariants were violated.
var ErrAtlasExhausted = errors.New("glyph: atlas exhausted after reset")

// Metrics carries the font derived values the rasterizer needs. It is a
// snapshot of externally owned font settings, refreshed whenever the font
// generation changes.
type Metrics struct {
	// CellSize is the terminal cell size in pixels.
	CellSize image.Point

	// Baseline is the distance from the cell top to the text baseline.
	Baseline int

	// Descender is the descender gap below the baseline.
	Descender int

	// FontSizePx is the font size in pixels (em height).
	FontSizePx float32

	// AdvanceWidth is the nominal glyph advance in pixels.
	AdvanceWidth int

	// LigaturesDisabled turns off the ligature overhang thresholds, so
	// overlap splitting never triggers.
	LigaturesDisabled bool

	// ClearType selects per-channel coverage blending for text.
	ClearType bool

	// Aliased disables interpolation when scaling soft font bitmaps.
	Aliased bool

	// SoftFontCellSize is the size of one soft font glyph in pattern
	// pixels, at most 16 wide.
	SoftFontCellSize image.Point

	// SoftFontPattern holds the packed soft font rows, one uint16 per
	// row with the leftmost pixel in the most significant bit.
	SoftFontPattern []uint16
}

// Rasterizer renders glyphs into the atlas and fills the cache. It owns the
// full atlas reset cycle: when packing fails, every cache entry is flushed,
// the atlas is resized per the sizing policy, and the allocation is retried
// exactly once.
type Rasterizer struct {
	cache *Cache
	atlas *atlas.Atlas
	m     Metrics

	// Ligature overhang thresholds relative to the pen position,
	// unshifted. Valid only when ligatures are enabled.
	triggerLeft  int
	triggerRight int

	textShading ShadingType

	// targetArea is the render target area in pixels, which caps atlas
	// growth at 125% of it.
	targetArea uint32

	// pendingReset defers a font driven atlas reset to the first
	// rasterization that actually needs the atlas.
	pendingReset bool

	resetCount int
	onReset    func()

	// shapes holds builtin glyph pixel buffers across atlas resets.
	// Shapes are pure functions of code point and size, so evicted or
	// stale entries just recompute.
	shapes *cache.Cache[shapeKey, []uint8]
}

type shapeKey struct {
	cp   rune
	w, h int
}

func shapeHasher(k shapeKey) uint64 {
	return uint64(uint32(k.cp))*0x9E3779B1 ^ uint64(k.w)<<40 ^ uint64(k.h)<<20
}

// NewRasterizer creates a rasterizer over the given cache and atlas.
func NewRasterizer(c *Cache, a *atlas.Atlas) *Rasterizer {
	return &Rasterizer{
		cache:  c,
		atlas:  a,
		shapes: cache.New[shapeKey, []uint8](64, shapeHasher),
	}
}

// SetMetrics installs a new font metrics snapshot and recomputes the
// ligature overhang thresholds.
func (r *Rasterizer) SetMetrics(m Metrics) {
	r.m = m
	r.triggerLeft = -m.CellSize.X / 2
	r.triggerRight = m.AdvanceWidth + m.CellSize.X/2
	if m.ClearType {
		r.textShading = ShadingTextClearType
	} else {
		r.textShading = ShadingTextGrayscale
	}
}

// Metrics returns the current font metrics snapshot.
func (r *Rasterizer) Metrics() Metrics { return r.m }

// SetTargetArea updates the render target area used by the sizing policy.
func (r *Rasterizer) SetTargetArea(area uint32) { r.targetArea = area }

// MarkForReset schedules a full atlas reset for the next rasterization.
// Called on font changes; the reset is deferred so a settings update does
// not force atlas work before it is otherwise needed.
func (r *Rasterizer) MarkForReset() { r.pendingReset = true }

// OnReset registers a hook invoked after every atlas reset, before the
// failed allocation is retried. The owner uses it to recreate the GPU side
// texture at the new size.
func (r *Rasterizer) OnReset(fn func()) { r.onReset = fn }

// ResetCount returns how many atlas resets have occurred.
func (r *Rasterizer) ResetCount() int { return r.resetCount }

// Reset flushes every cache entry, resizes the atlas per the sizing policy,
// and reinitializes the packer, as one atomic step.
func (r *Rasterizer) Reset() {
	cellArea := uint32(r.m.CellSize.X) * uint32(r.m.CellSize.Y)
	w, h := atlas.NextSize(cellArea, r.targetArea, r.atlas.Area())
	r.atlas.Reset(int(w), int(h))
	r.cache.Clear()
	r.pendingReset = false
	r.resetCount++
	if r.onReset != nil {
		r.onReset()
	}
}

// Glyph returns the cache entry for the key, rasterizing it on a miss.
//
// A nil face selects the builtin pseudo face, where glyphIndex is a code
// point addressing either a procedural shape table or a soft font glyph.
func (r *Rasterizer) Glyph(face *font.Face, rend LineRendition, glyphIndex uint32) (*Entry, error) {
	if r.pendingReset {
		r.Reset()
	}
	if e := r.cache.Glyph(face, rend, glyphIndex); e != nil {
		return e, nil
	}
	if face == nil {
		return r.drawBuiltinGlyph(rend, glyphIndex)
	}
	return r.drawFontGlyph(face, rend, glyphIndex)
}

// InlineBitmap caches a pre-scaled inline row bitmap (sixel and friends)
// keyed by its revision stamp. rgba must hold w*h*4 premultiplied bytes.
func (r *Rasterizer) InlineBitmap(revision uint64, rgba []uint8, w, h int) (*Entry, error) {
	if r.pendingReset {
		r.Reset()
	}
	if e := r.cache.Bitmap(revision); e != nil {
		return e, nil
	}
	x, y, err := r.allocate(w, h)
	if err != nil {
		return nil, err
	}
	r.atlas.Write(x, y, w, h, rgba)

	e := r.cache.InsertBitmap(revision)
	e.Shading = ShadingTextPassthrough
	e.Size = image.Pt(w, h)
	e.Texcoord = image.Pt(x, y)
	return e, nil
}

// allocate reserves an atlas rect, running the reset/grow/retry cycle on
// overflow. A second failure is fatal.
func (r *Rasterizer) allocate(w, h int) (x, y int, err error) {
	if x, y, ok := r.atlas.Pack(w, h); ok {
		return x, y, nil
	}
	r.Reset()
	if x, y, ok := r.atlas.Pack(w, h); ok {
		return x, y, nil
	}
	return 0, 0, fmt.Errorf("glyph: allocating %dx%d rect: %w", w, h, ErrAtlasExhausted)
}

func (r *Rasterizer) drawFontGlyph(face *font.Face, rend LineRendition, glyphIndex uint32) (*Entry, error) {
	hs := rend.HorizontalShift()
	vs := rend.VerticalShift()
	scale := r.m.FontSizePx / float32(face.Upem())
	sx := scale * float32(int(1)<<hs)
	sy := scale * float32(int(1)<<vs)

	var outline font.GlyphOutline
	switch data := face.GlyphData(font.GID(glyphIndex)).(type) {
	case font.GlyphOutline:
		outline = data
	case font.GlyphSVG:
		outline = data.Outline
	case font.GlyphBitmap:
		return r.drawBitmapGlyph(face, rend, glyphIndex, data)
	default:
		return r.cache.Insert(face, rend, glyphIndex), nil
	}

	// Ink bounding box over the scaled control points. Control points of
	// curved segments give a conservative superset of the true ink rect,
	// which only costs a few blank atlas pixels.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, seg := range outline.Segments {
		for i := 0; i < segArgs(seg.Op); i++ {
			x := float64(seg.Args[i].X * sx)
			y := float64(-seg.Args[i].Y * sy)
			minX = math.Min(minX, x)
			minY = math.Min(minY, y)
			maxX = math.Max(maxX, x)
			maxY = math.Max(maxY, y)
		}
	}

	// Empty bounds mean whitespace; skip atlas allocation entirely.
	if minX >= maxX || minY >= maxY {
		return r.cache.Insert(face, rend, glyphIndex), nil
	}

	bl := int(math.Floor(minX))
	bt := int(math.Floor(minY))
	br := int(math.Ceil(maxX))
	bb := int(math.Ceil(maxY))
	w := br - bl
	h := bb - bt

	x, y, err := r.allocate(w, h)
	if err != nil {
		return nil, err
	}

	r.fillOutline(outline, x, y, w, h, sx, sy, float32(bl), float32(bt))

	e := r.cache.Insert(face, rend, glyphIndex)
	e.Shading = r.textShading
	e.OverlapSplit = r.overlapSplits(w, bl, br, hs)
	e.Offset = image.Pt(bl, bt)
	e.Size = image.Pt(w, h)
	e.Texcoord = image.Pt(x, y)

	if vs == 1 {
		r.splitDoubleHeight(face, rend, e)
	}
	return e, nil
}

// overlapSplits decides whether a glyph must be rendered as cell-clipped
// fragments. Ligatures are drawn with strict cell-wise foreground color,
// while other text may overhang its cells so italics don't look cut off.
// The width condition excludes diacritics, the threshold pair excludes
// regular wide glyphs that only overlap a little.
func (r *Rasterizer) overlapSplits(w, bl, br, hs int) bool {
	if r.m.LigaturesDisabled {
		return false
	}
	return w >= r.m.CellSize.X && (bl <= r.triggerLeft<<hs || br >= r.triggerRight<<hs)
}

// fillOutline rasterizes the outline into the atlas rect at (x, y) as
// premultiplied white, with coverage in every channel so both grayscale
// and per-channel blending sample the same data.
func (r *Rasterizer) fillOutline(outline font.GlyphOutline, x, y, w, h int, sx, sy, bl, bt float32) {
	ras := vector.NewRasterizer(w, h)
	ras.DrawOp = draw.Src

	px := func(p font.SegmentPoint) (float32, float32) {
		return p.X*sx - bl, -p.Y*sy - bt
	}

	open := false
	for _, seg := range outline.Segments {
		switch seg.Op {
		case ot.SegmentOpMoveTo:
			if open {
				ras.ClosePath()
			}
			ax, ay := px(seg.Args[0])
			ras.MoveTo(ax, ay)
			open = true
		case ot.SegmentOpLineTo:
			ax, ay := px(seg.Args[0])
			ras.LineTo(ax, ay)
		case ot.SegmentOpQuadTo:
			ax, ay := px(seg.Args[0])
			cx, cy := px(seg.Args[1])
			ras.QuadTo(ax, ay, cx, cy)
		case ot.SegmentOpCubeTo:
			ax, ay := px(seg.Args[0])
			cx, cy := px(seg.Args[1])
			dx, dy := px(seg.Args[2])
			ras.CubeTo(ax, ay, cx, cy, dx, dy)
		}
	}
	if open {
		ras.ClosePath()
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	rgba := make([]uint8, w*h*4)
	for i, a := range mask.Pix {
		o := i * 4
		rgba[o+0] = a
		rgba[o+1] = a
		rgba[o+2] = a
		rgba[o+3] = a
	}
	r.atlas.Write(x, y, w, h, rgba)
}

func segArgs(op ot.SegmentOp) int {
	switch op {
	case ot.SegmentOpQuadTo:
		return 2
	case ot.SegmentOpCubeTo:
		return 3
	default:
		return 1
	}
}

// drawBitmapGlyph handles color emoji: the embedded image is decoded and
// scaled to cell height, preserving aspect up to two cells of width.
// Undecodable formats degrade to whitespace.
func (r *Rasterizer) drawBitmapGlyph(face *font.Face, rend LineRendition, glyphIndex uint32, data font.GlyphBitmap) (*Entry, error) {
	hs := rend.HorizontalShift()
	vs := rend.VerticalShift()

	img, _, err := image.Decode(bytes.NewReader(data.Data))
	if err != nil {
		return r.cache.Insert(face, rend, glyphIndex), nil
	}

	baseline := r.m.Baseline << vs
	h := r.m.CellSize.Y << vs
	maxW := 2 * r.m.CellSize.X << hs
	sb := img.Bounds()
	w := maxW
	if sb.Dy() > 0 {
		w = h * sb.Dx() / sb.Dy()
		if w > maxW {
			w = maxW
		}
	}
	if w <= 0 || h <= 0 {
		return r.cache.Insert(face, rend, glyphIndex), nil
	}

	x, y, err := r.allocate(w, h)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, sb, xdraw.Src, nil)
	r.atlas.Write(x, y, w, h, dst.Pix)

	e := r.cache.Insert(face, rend, glyphIndex)
	e.Shading = ShadingTextPassthrough
	e.Offset = image.Pt(0, -baseline)
	e.Size = image.Pt(w, h)
	e.Texcoord = image.Pt(x, y)

	if vs == 1 {
		r.splitDoubleHeight(face, rend, e)
	}
	return e, nil
}

// drawBuiltinGlyph renders procedural and soft font glyphs at full cell
// size. glyphIndex is a code point here.
func (r *Rasterizer) drawBuiltinGlyph(rend LineRendition, glyphIndex uint32) (*Entry, error) {
	hs := rend.HorizontalShift()
	vs := rend.VerticalShift()
	w := r.m.CellSize.X << hs
	h := r.m.CellSize.Y << vs
	baseline := r.m.Baseline << vs
	cp := rune(glyphIndex)

	var pix []uint8
	shading := ShadingTextBuiltinGlyph

	switch {
	case IsSoftFont(cp):
		src, ok := drawSoftFont(cp, r.m.SoftFontPattern, r.m.SoftFontCellSize.X, r.m.SoftFontCellSize.Y)
		if !ok {
			// Stale soft font reference, not corruption.
			return r.cache.Insert(nil, rend, glyphIndex), nil
		}
		pix = scaleRGBA(src, r.m.SoftFontCellSize.X, r.m.SoftFontCellSize.Y, w, h, r.m.Aliased)
		shading = ShadingTextGrayscale
	default:
		p, ok := r.shapes.Get(shapeKey{cp, w, h})
		if !ok {
			if p, ok = drawBuiltin(cp, w, h); !ok {
				return r.cache.Insert(nil, rend, glyphIndex), nil
			}
			r.shapes.Set(shapeKey{cp, w, h}, p)
		}
		pix = p
	}

	x, y, err := r.allocate(w, h)
	if err != nil {
		return nil, err
	}
	r.atlas.Write(x, y, w, h, pix)

	e := r.cache.Insert(nil, rend, glyphIndex)
	e.Shading = shading
	e.Offset = image.Pt(0, -baseline)
	e.Size = image.Pt(w, h)
	e.Texcoord = image.Pt(x, y)

	if vs == 1 {
		r.splitDoubleHeight(nil, rend, e)
	}
	return e, nil
}

// splitDoubleHeight divides a glyph rasterized for a double-height row into
// a top and a bottom half. The passed entry is clipped to the half its row
// rendition selects, and a second cache entry under the opposite rendition
// key receives the other half. Each half independently addresses its slice
// of the atlas rect.
func (r *Rasterizer) splitDoubleHeight(face *font.Face, rend LineRendition, e *Entry) {
	// Twice the line height, twice the descender gap.
	e.Offset.Y -= r.m.Descender

	isTop := rend == DoubleHeightTop
	other := DoubleHeightTop
	if isTop {
		other = DoubleHeightBottom
	}
	e2 := r.cache.Insert(face, other, e.GlyphIndex)
	*e2 = *e

	top, bottom := e, e2
	if !isTop {
		top, bottom = e2, e
	}

	topSize := -e.Offset.Y - r.m.Baseline
	if topSize < 0 {
		topSize = 0
	}
	if topSize > e.Size.Y {
		topSize = e.Size.Y
	}

	top.Offset.Y += r.m.CellSize.Y
	top.Size.Y = topSize
	bottom.Offset.Y += topSize
	bottom.Size.Y = max(0, bottom.Size.Y-topSize)
	bottom.Texcoord.Y += topSize

	// Diacritics might exist on only one half of the double-height row.
	// The other half effectively turns into whitespace.
	if top.Size.Y == 0 {
		top.Shading = ShadingDefault
	}
	if bottom.Size.Y == 0 {
		bottom.Shading = ShadingDefault
	}
}

// scaleRGBA scales a tightly packed RGBA buffer to the destination size.
func scaleRGBA(src []uint8, sw, sh, dw, dh int, nearest bool) []uint8 {
	s := &image.RGBA{Pix: src, Stride: sw * 4, Rect: image.Rect(0, 0, sw, sh)}
	d := image.NewRGBA(image.Rect(0, 0, dw, dh))
	if nearest {
		xdraw.NearestNeighbor.Scale(d, d.Bounds(), s, s.Bounds(), xdraw.Src, nil)
	} else {
		xdraw.ApproxBiLinear.Scale(d, d.Bounds(), s, s.Bounds(), xdraw.Src, nil)
	}
	return d.Pix
}
