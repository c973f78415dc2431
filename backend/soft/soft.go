// Package soft provides an in-memory Adapter without GPU access.
// It reports no compute support, which routes composition to the CPU
// path, and tracks resource creation so tests can assert on lifecycle
// behavior.
package soft

import (
	"fmt"
	"sync"

	"github.com/gogpu/termgrid/gpucore"
)

type buffer struct {
	data  []byte
	usage gpucore.BufferUsage
}

type texture struct {
	width, height int
	format        gpucore.TextureFormat
	pixels        []byte
}

// Counters records how many resources of each kind were ever created.
type Counters struct {
	Buffers          int
	Textures         int
	ShaderModules    int
	BindGroupLayouts int
	PipelineLayouts  int
	ComputePipelines int
	BindGroups       int
}

// Adapter is a software stand-in for a GPU device.
type Adapter struct {
	mu      sync.Mutex
	nextID  uint64
	created Counters

	buffers   map[gpucore.BufferID]*buffer
	textures  map[gpucore.TextureID]*texture
	shaders   map[gpucore.ShaderModuleID]struct{}
	layouts   map[gpucore.BindGroupLayoutID]struct{}
	pipelines map[gpucore.ComputePipelineID]struct{}
	pipeLays  map[gpucore.PipelineLayoutID]struct{}
	groups    map[gpucore.BindGroupID]struct{}
}

var _ gpucore.Adapter = (*Adapter)(nil)

// New creates an empty software adapter.
func New() *Adapter {
	return &Adapter{
		buffers:   make(map[gpucore.BufferID]*buffer),
		textures:  make(map[gpucore.TextureID]*texture),
		shaders:   make(map[gpucore.ShaderModuleID]struct{}),
		layouts:   make(map[gpucore.BindGroupLayoutID]struct{}),
		pipelines: make(map[gpucore.ComputePipelineID]struct{}),
		pipeLays:  make(map[gpucore.PipelineLayoutID]struct{}),
		groups:    make(map[gpucore.BindGroupID]struct{}),
	}
}

// Created returns the cumulative creation counters.
func (a *Adapter) Created() Counters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.created
}

// Live returns the number of resources currently alive.
func (a *Adapter) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers) + len(a.textures) + len(a.shaders) +
		len(a.layouts) + len(a.pipelines) + len(a.pipeLays) + len(a.groups)
}

func (a *Adapter) id() uint64 {
	a.nextID++
	return a.nextID
}

// SupportsCompute reports false: composition falls back to the CPU.
func (a *Adapter) SupportsCompute() bool { return false }

// MaxBufferSize returns a generous in-memory limit.
func (a *Adapter) MaxBufferSize() uint64 { return 256 << 20 }

func (a *Adapter) CreateShaderModule(spirv []uint32, label string) (gpucore.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return gpucore.InvalidID, fmt.Errorf("soft: empty shader module %q", label)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.ShaderModuleID(a.id())
	a.shaders[id] = struct{}{}
	a.created.ShaderModules++
	return id, nil
}

func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.shaders, id)
}

func (a *Adapter) CreateBuffer(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("soft: invalid buffer size %d", size)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BufferID(a.id())
	a.buffers[id] = &buffer{data: make([]byte, size), usage: usage}
	a.created.Buffers++
	return id, nil
}

func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.buffers, id)
}

func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.buffers[id]; ok && int(offset)+len(data) <= len(b.data) {
		copy(b.data[offset:], data)
	}
}

func (a *Adapter) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buffers[id]
	if !ok {
		return nil, fmt.Errorf("soft: unknown buffer %d", id)
	}
	if int(offset+size) > len(b.data) {
		return nil, fmt.Errorf("soft: read past end of buffer %d", id)
	}
	out := make([]byte, size)
	copy(out, b.data[offset:])
	return out, nil
}

func (a *Adapter) CreateTexture(width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("soft: invalid texture size %dx%d", width, height)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.TextureID(a.id())
	a.textures[id] = &texture{
		width:  width,
		height: height,
		format: format,
		pixels: make([]byte, width*height*format.BytesPerPixel()),
	}
	a.created.Textures++
	return id, nil
}

func (a *Adapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.textures, id)
}

func (a *Adapter) WriteTexture(id gpucore.TextureID, x, y, width, height int, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.textures[id]
	if !ok || x < 0 || y < 0 || x+width > t.width || y+height > t.height {
		return
	}
	bpp := t.format.BytesPerPixel()
	for row := 0; row < height; row++ {
		src := data[row*width*bpp : (row+1)*width*bpp]
		dst := t.pixels[((y+row)*t.width+x)*bpp:]
		copy(dst, src)
	}
}

func (a *Adapter) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.textures[id]
	if !ok {
		return nil, fmt.Errorf("soft: unknown texture %d", id)
	}
	out := make([]byte, len(t.pixels))
	copy(out, t.pixels)
	return out, nil
}

func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BindGroupLayoutID(a.id())
	a.layouts[id] = struct{}{}
	a.created.BindGroupLayouts++
	return id, nil
}

func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.layouts, id)
}

func (a *Adapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.PipelineLayoutID(a.id())
	a.pipeLays[id] = struct{}{}
	a.created.PipelineLayouts++
	return id, nil
}

func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pipeLays, id)
}

func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.ComputePipelineID(a.id())
	a.pipelines[id] = struct{}{}
	a.created.ComputePipelines++
	return id, nil
}

func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pipelines, id)
}

func (a *Adapter) CreateBindGroup(layout gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BindGroupID(a.id())
	a.groups[id] = struct{}{}
	a.created.BindGroups++
	return id, nil
}

func (a *Adapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.groups, id)
}

// BeginComputePass returns a no-op encoder. Dispatches are ignored since
// composition runs on the CPU with this adapter.
func (a *Adapter) BeginComputePass() gpucore.ComputePassEncoder {
	return nopPass{}
}

func (a *Adapter) Submit()   {}
func (a *Adapter) WaitIdle() {}

type nopPass struct{}

func (nopPass) SetPipeline(gpucore.ComputePipelineID)  {}
func (nopPass) SetBindGroup(uint32, gpucore.BindGroupID) {}
func (nopPass) Dispatch(x, y, z uint32)                {}
func (nopPass) End()                                   {}
