package compose

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	_ "embed"

	"github.com/gogpu/termgrid/atlas"
	"github.com/gogpu/termgrid/glyph"
	"github.com/gogpu/termgrid/gpucore"
	"github.com/gogpu/termgrid/grid"
)

//go:embed shaders/cell.wgsl
var cellShaderWGSL string

// Params configures one composite pass. The values mirror the uniform
// block of the compute shader.
type Params struct {
	TargetSize image.Point
	CellSize   image.Point
	Cols, Rows int

	// FillColor paints the target area outside the cell grid.
	FillColor uint32

	// EnhancedContrast is the grayscale contrast boost factor. Zero
	// leaves coverage linear.
	EnhancedContrast float32

	// UnderlineWidth is the decoration stroke width in pixels.
	UnderlineWidth int

	// CurlyHalfHeight and CurlyFrequency shape the curly underline wave.
	CurlyHalfHeight float32
	CurlyFrequency  float32

	// DotSize is the builtin shade checkerboard dot size in pixels.
	DotSize int
}

const uniformSize = 16 * 4

// quadStride is the byte size of one encoded decoration quad.
const quadStride = 8 * 4

// Compositor runs the bulk composition pass. One instance per render
// target. With an adapter that supports compute it dispatches the cell
// shader on the GPU; otherwise it composes into a CPU pixel buffer.
type Compositor struct {
	adapter gpucore.Adapter
	target  []uint8

	module     gpucore.ShaderModuleID
	bindLayout gpucore.BindGroupLayoutID
	pipeLayout gpucore.PipelineLayoutID
	pipeline   gpucore.ComputePipelineID

	uniformBuf gpucore.BufferID
	cellBuf    gpucore.BufferID
	quadBuf    gpucore.BufferID
	atlasTex   gpucore.TextureID
	targetTex  gpucore.TextureID

	cellCap    int
	quadCap    int
	atlasSize  image.Point
	targetSize image.Point
	atlasFresh bool
}

// NewCompositor creates a compositor over the given adapter. A nil
// adapter forces the CPU path.
func NewCompositor(adapter gpucore.Adapter) *Compositor {
	return &Compositor{adapter: adapter}
}

// GPUActive reports whether composite passes run on the GPU.
func (c *Compositor) GPUActive() bool {
	return c.adapter != nil && c.adapter.SupportsCompute()
}

// Composite runs one full pass: every target pixel is written from the
// cell grid, the glyph atlas and the decoration quads.
func (c *Compositor) Composite(p Params, g *grid.Grid, quads []grid.Quad, a *atlas.Atlas) error {
	if p.TargetSize.X <= 0 || p.TargetSize.Y <= 0 {
		return fmt.Errorf("composite: invalid target size %v", p.TargetSize)
	}
	if !c.GPUActive() {
		c.composeCPU(p, g, quads, a)
		a.ClearDirty()
		return nil
	}
	return c.composeGPU(p, g, quads, a)
}

// Target returns the composited frame as RGBA pixels. On the GPU path
// this reads the target texture back and stalls until the pass finished.
func (c *Compositor) Target() ([]uint8, error) {
	if !c.GPUActive() {
		return c.target, nil
	}
	if c.targetTex == gpucore.InvalidID {
		return nil, fmt.Errorf("composite: no frame composited yet")
	}
	return c.adapter.ReadTexture(c.targetTex)
}

// TargetTexture exposes the GPU render target for the post stage and the
// presentation layer. InvalidID on the CPU path.
func (c *Compositor) TargetTexture() gpucore.TextureID {
	return c.targetTex
}

// Release destroys all GPU resources. The compositor stays usable and
// recreates them on the next composite.
func (c *Compositor) Release() {
	if c.adapter == nil {
		return
	}
	ad := c.adapter
	if c.pipeline != gpucore.InvalidID {
		ad.DestroyComputePipeline(c.pipeline)
	}
	if c.pipeLayout != gpucore.InvalidID {
		ad.DestroyPipelineLayout(c.pipeLayout)
	}
	if c.bindLayout != gpucore.InvalidID {
		ad.DestroyBindGroupLayout(c.bindLayout)
	}
	if c.module != gpucore.InvalidID {
		ad.DestroyShaderModule(c.module)
	}
	for _, b := range []gpucore.BufferID{c.uniformBuf, c.cellBuf, c.quadBuf} {
		if b != gpucore.InvalidID {
			ad.DestroyBuffer(b)
		}
	}
	for _, t := range []gpucore.TextureID{c.atlasTex, c.targetTex} {
		if t != gpucore.InvalidID {
			ad.DestroyTexture(t)
		}
	}
	*c = Compositor{adapter: c.adapter}
}

// CPU reference path.

func (c *Compositor) composeCPU(p Params, g *grid.Grid, quads []grid.Quad, a *atlas.Atlas) {
	w, h := p.TargetSize.X, p.TargetSize.Y
	if len(c.target) != w*h*4 {
		c.target = make([]uint8, w*h*4)
	}
	cells := g.Cells()
	pix := a.Pixels()
	aw := a.Width()

	for y := 0; y < h; y++ {
		cy := y / p.CellSize.Y
		oy := y - cy*p.CellSize.Y
		for x := 0; x < w; x++ {
			cx := x / p.CellSize.X
			color := p.FillColor
			if cx < p.Cols && cy < p.Rows {
				cell := &cells[cy*p.Cols+cx]
				color = cell.Background
				if cell.Shading != 0 {
					ox := x - cx*p.CellSize.X
					color = c.shadeCell(p, cell, color, x, y, ox, oy, pix, aw)
				}
			}
			putPixel(c.target, w, x, y, color)
		}
	}

	bounds := image.Rect(0, 0, w, h)
	for i := range quads {
		c.drawQuadCPU(p, &quads[i], bounds)
	}
}

func (c *Compositor) shadeCell(p Params, cell *grid.Cell, bg uint32, x, y, ox, oy int, pix []uint8, aw int) uint32 {
	gx0, gy0 := grid.UnpackI16(cell.GlyphOrigin)
	gw, gh := grid.UnpackU16(cell.GlyphSize)
	gx, gy := ox-gx0, oy-gy0
	if gx < 0 || gx >= gw || gy < 0 || gy >= gh {
		return bg
	}
	tx, ty := grid.UnpackU16(cell.GlyphTex)
	sr, sg, sb, sa := samplePixel(pix, aw, tx+gx, ty+gy)

	switch glyph.ShadingType(cell.Shading) {
	case glyph.ShadingTextGrayscale:
		return blendGrayscale(bg, cell.Foreground, sa, p.EnhancedContrast)
	case glyph.ShadingTextClearType:
		return blendClearType(bg, cell.Foreground, sr, sg, sb, p.EnhancedContrast)
	case glyph.ShadingTextPassthrough:
		return blendPassthrough(bg, sr, sg, sb, sa)
	case glyph.ShadingTextBuiltinGlyph:
		if sa > 0 && builtinPatternOn(x, y, p.DotSize, sr >= 0.5, sg >= 0.5, sb >= 0.5) {
			return blendGrayscale(bg, cell.Foreground, 1, 0)
		}
		return bg
	default:
		return bg
	}
}

func (c *Compositor) drawQuadCPU(p Params, q *grid.Quad, bounds image.Rectangle) {
	r := q.Rect.Intersect(bounds)
	w := p.TargetSize.X
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			var cov float32
			switch q.Shading {
			case glyph.ShadingDottedLine:
				if dottedOn(x, p.UnderlineWidth) {
					cov = 1
				}
			case glyph.ShadingDashedLine:
				if dashedOn(x, p.CellSize.X) {
					cov = 1
				}
			case glyph.ShadingCurlyLine:
				cov = curlyCoverage(x, y-q.Rect.Min.Y, p.CurlyHalfHeight, p.CurlyFrequency, p.UnderlineWidth)
			default:
				cov = 1
			}
			if cov <= 0 {
				continue
			}
			bg := getPixel(c.target, w, x, y)
			putPixel(c.target, w, x, y, blendGrayscale(bg, q.Color, cov, 0))
		}
	}
}

func samplePixel(pix []uint8, width, x, y int) (r, g, b, a float32) {
	o := (y*width + x) * 4
	if o < 0 || o+3 >= len(pix) {
		return 0, 0, 0, 0
	}
	return float32(pix[o]) / 255, float32(pix[o+1]) / 255, float32(pix[o+2]) / 255, float32(pix[o+3]) / 255
}

func putPixel(dst []uint8, width, x, y int, c uint32) {
	o := (y*width + x) * 4
	binary.LittleEndian.PutUint32(dst[o:], c)
}

func getPixel(src []uint8, width, x, y int) uint32 {
	o := (y*width + x) * 4
	return binary.LittleEndian.Uint32(src[o:])
}

// GPU path.

func (c *Compositor) composeGPU(p Params, g *grid.Grid, quads []grid.Quad, a *atlas.Atlas) error {
	if err := c.ensurePipeline(); err != nil {
		return err
	}
	if err := c.ensureResources(p, g, len(quads), a); err != nil {
		return err
	}
	ad := c.adapter

	ad.WriteBuffer(c.uniformBuf, 0, c.encodeUniforms(p, len(quads)))
	ad.WriteBuffer(c.cellBuf, 0, g.Bytes())
	if len(quads) > 0 {
		ad.WriteBuffer(c.quadBuf, 0, encodeQuads(quads))
	}
	c.uploadAtlas(a)

	group, err := ad.CreateBindGroup(c.bindLayout, []gpucore.BindGroupEntry{
		{Binding: 0, Buffer: c.uniformBuf},
		{Binding: 1, Buffer: c.cellBuf},
		{Binding: 2, Buffer: c.quadBuf},
		{Binding: 3, Texture: c.atlasTex},
		{Binding: 4, Texture: c.targetTex},
	})
	if err != nil {
		return fmt.Errorf("composite: bind group: %w", err)
	}
	defer ad.DestroyBindGroup(group)

	pass := ad.BeginComputePass()
	pass.SetPipeline(c.pipeline)
	pass.SetBindGroup(0, group)
	pass.Dispatch(uint32(p.TargetSize.X+7)/8, uint32(p.TargetSize.Y+7)/8, 1)
	pass.End()
	ad.Submit()
	return nil
}

func (c *Compositor) ensurePipeline() error {
	if c.pipeline != gpucore.InvalidID {
		return nil
	}
	ad := c.adapter

	spirv, err := CompileWGSL(cellShaderWGSL)
	if err != nil {
		return fmt.Errorf("composite: cell shader: %w", err)
	}
	c.module, err = ad.CreateShaderModule(spirv, "cell_composite")
	if err != nil {
		return fmt.Errorf("composite: shader module: %w", err)
	}
	c.bindLayout, err = ad.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label: "cell_composite",
		Entries: []gpucore.BindGroupLayoutEntry{
			{Binding: 0, Type: gpucore.BindingTypeUniformBuffer, MinBindingSize: uniformSize},
			{Binding: 1, Type: gpucore.BindingTypeReadOnlyStorageBuffer},
			{Binding: 2, Type: gpucore.BindingTypeReadOnlyStorageBuffer},
			{Binding: 3, Type: gpucore.BindingTypeReadOnlyStorageBuffer},
			{Binding: 4, Type: gpucore.BindingTypeStorageBuffer},
		},
	})
	if err != nil {
		return fmt.Errorf("composite: bind group layout: %w", err)
	}
	c.pipeLayout, err = ad.CreatePipelineLayout([]gpucore.BindGroupLayoutID{c.bindLayout})
	if err != nil {
		return fmt.Errorf("composite: pipeline layout: %w", err)
	}
	c.pipeline, err = ad.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:        "cell_composite",
		Layout:       c.pipeLayout,
		ShaderModule: c.module,
		EntryPoint:   "main",
	})
	if err != nil {
		return fmt.Errorf("composite: pipeline: %w", err)
	}
	return nil
}

func (c *Compositor) ensureResources(p Params, g *grid.Grid, quadCount int, a *atlas.Atlas) error {
	ad := c.adapter
	var err error

	if c.uniformBuf == gpucore.InvalidID {
		c.uniformBuf, err = ad.CreateBuffer(uniformSize, gpucore.BufferUsageUniform|gpucore.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("composite: uniform buffer: %w", err)
		}
	}

	cellCount := g.Cols() * g.Rows()
	if cellCount > c.cellCap {
		if c.cellBuf != gpucore.InvalidID {
			ad.DestroyBuffer(c.cellBuf)
		}
		c.cellBuf, err = ad.CreateBuffer(cellCount*grid.CellStride, gpucore.BufferUsageStorage|gpucore.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("composite: cell buffer: %w", err)
		}
		c.cellCap = cellCount
	}

	// The shader always binds a quad buffer, so keep a one-entry minimum.
	needQuads := quadCount
	if needQuads < 1 {
		needQuads = 1
	}
	if needQuads > c.quadCap {
		if c.quadBuf != gpucore.InvalidID {
			ad.DestroyBuffer(c.quadBuf)
		}
		c.quadBuf, err = ad.CreateBuffer(needQuads*quadStride, gpucore.BufferUsageStorage|gpucore.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("composite: quad buffer: %w", err)
		}
		c.quadCap = needQuads
	}

	asz := image.Pt(a.Width(), a.Height())
	if asz != c.atlasSize {
		if c.atlasTex != gpucore.InvalidID {
			ad.DestroyTexture(c.atlasTex)
		}
		c.atlasTex, err = ad.CreateTexture(asz.X, asz.Y, gpucore.TextureFormatRGBA8Unorm)
		if err != nil {
			return fmt.Errorf("composite: atlas texture: %w", err)
		}
		c.atlasSize = asz
		c.atlasFresh = true
	}

	if p.TargetSize != c.targetSize {
		if c.targetTex != gpucore.InvalidID {
			ad.DestroyTexture(c.targetTex)
		}
		c.targetTex, err = ad.CreateTexture(p.TargetSize.X, p.TargetSize.Y, gpucore.TextureFormatRGBA8Unorm)
		if err != nil {
			return fmt.Errorf("composite: target texture: %w", err)
		}
		c.targetSize = p.TargetSize
	}
	return nil
}

// uploadAtlas pushes changed atlas pixels to the GPU copy. A freshly
// created texture gets a full upload regardless of the dirty rectangle.
func (c *Compositor) uploadAtlas(a *atlas.Atlas) {
	if c.atlasFresh {
		c.adapter.WriteTexture(c.atlasTex, 0, 0, a.Width(), a.Height(), a.Pixels())
		c.atlasFresh = false
		a.ClearDirty()
		return
	}
	d, ok := a.Dirty()
	if !ok {
		return
	}
	aw := a.Width()
	pix := a.Pixels()
	row := make([]uint8, d.Dx()*4)
	for y := d.Min.Y; y < d.Max.Y; y++ {
		copy(row, pix[(y*aw+d.Min.X)*4:])
		c.adapter.WriteTexture(c.atlasTex, d.Min.X, y, d.Dx(), 1, row)
	}
	a.ClearDirty()
}

func (c *Compositor) encodeUniforms(p Params, quadCount int) []byte {
	u := make([]byte, uniformSize)
	put := func(i int, v uint32) { binary.LittleEndian.PutUint32(u[i*4:], v) }
	put(0, uint32(p.TargetSize.X))
	put(1, uint32(p.TargetSize.Y))
	put(2, uint32(p.CellSize.X))
	put(3, uint32(p.CellSize.Y))
	put(4, uint32(p.Cols))
	put(5, uint32(p.Rows))
	put(6, uint32(c.atlasSize.X))
	put(7, uint32(c.atlasSize.Y))
	put(8, p.FillColor)
	put(9, math.Float32bits(p.EnhancedContrast))
	put(10, uint32(p.UnderlineWidth))
	put(11, math.Float32bits(p.CurlyHalfHeight))
	put(12, math.Float32bits(p.CurlyFrequency))
	put(13, uint32(p.DotSize))
	put(14, uint32(quadCount))
	return u
}

func encodeQuads(quads []grid.Quad) []byte {
	b := make([]byte, len(quads)*quadStride)
	for i := range quads {
		q := &quads[i]
		o := i * quadStride
		binary.LittleEndian.PutUint32(b[o+0:], uint32(int32(q.Rect.Min.X)))
		binary.LittleEndian.PutUint32(b[o+4:], uint32(int32(q.Rect.Min.Y)))
		binary.LittleEndian.PutUint32(b[o+8:], uint32(int32(q.Rect.Max.X)))
		binary.LittleEndian.PutUint32(b[o+12:], uint32(int32(q.Rect.Max.Y)))
		binary.LittleEndian.PutUint32(b[o+16:], q.Color)
		binary.LittleEndian.PutUint32(b[o+20:], uint32(q.Shading))
	}
	return b
}
