//go:build !nogpu

// Package wgpu provides a GPU adapter backed by gogpu/wgpu/hal.
//
// Textures are modeled as storage buffers: the compositor's compute shaders
// index pixel data as array<u32>, so a texture here is a tracked buffer
// with dimensions. Texture bind group entries resolve to the backing
// buffer.
package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/termgrid/gpucore"
)

// texture is a storage buffer with pixel dimensions attached.
type texture struct {
	buffer hal.Buffer
	width  int
	height int
	bpp    int
}

// pendingWork is a submitted command buffer awaiting GPU completion.
// Freed once WaitIdle observes the queue drain.
type pendingWork struct {
	cmd hal.CommandBuffer
	enc hal.CommandEncoder
}

// Adapter implements gpucore.Adapter on a HAL device and queue.
//
// Safe for concurrent use; all resource maps are mutex protected.
type Adapter struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	limits      gputypes.Limits
	maxBufferSz uint64

	nextID atomic.Uint64

	buffers          map[gpucore.BufferID]hal.Buffer
	textures         map[gpucore.TextureID]*texture
	shaderModules    map[gpucore.ShaderModuleID]hal.ShaderModule
	computePipelines map[gpucore.ComputePipelineID]hal.ComputePipeline
	bindGroupLayouts map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[gpucore.PipelineLayoutID]hal.PipelineLayout
	bindGroups       map[gpucore.BindGroupID]hal.BindGroup

	encoder    hal.CommandEncoder
	hasEncoder bool
	pending    []pendingWork
}

var _ gpucore.Adapter = (*Adapter)(nil)

// New wraps a HAL device and queue. If limits is nil the defaults are
// used.
func New(device hal.Device, queue hal.Queue, limits *gputypes.Limits) (*Adapter, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: device and queue are required")
	}
	var lim gputypes.Limits
	if limits != nil {
		lim = *limits
	} else {
		lim = gputypes.DefaultLimits()
	}

	a := &Adapter{
		device:           device,
		queue:            queue,
		limits:           lim,
		maxBufferSz:      lim.MaxBufferSize,
		buffers:          make(map[gpucore.BufferID]hal.Buffer),
		textures:         make(map[gpucore.TextureID]*texture),
		shaderModules:    make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		computePipelines: make(map[gpucore.ComputePipelineID]hal.ComputePipeline),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]hal.PipelineLayout),
		bindGroups:       make(map[gpucore.BindGroupID]hal.BindGroup),
	}
	// 0 is gpucore.InvalidID.
	a.nextID.Store(1)
	return a, nil
}

func (a *Adapter) newID() uint64 {
	return a.nextID.Add(1) - 1
}

// SupportsCompute reports true: this adapter exists to run the compositor
// on the GPU.
func (a *Adapter) SupportsCompute() bool { return true }

// MaxBufferSize returns the device buffer size limit.
func (a *Adapter) MaxBufferSize() uint64 { return a.maxBufferSz }

func (a *Adapter) CreateShaderModule(spirv []uint32, label string) (gpucore.ShaderModuleID, error) {
	if len(spirv) == 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: empty SPIR-V bytecode")
	}

	module, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create shader module: %w", err)
	}

	id := gpucore.ShaderModuleID(a.newID())
	a.mu.Lock()
	a.shaderModules[id] = module
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	module, ok := a.shaderModules[id]
	if ok {
		delete(a.shaderModules, id)
	}
	a.mu.Unlock()
	if ok {
		a.device.DestroyShaderModule(module)
	}
}

func (a *Adapter) CreateBuffer(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: buffer size must be positive")
	}

	buffer, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Size:  uint64(size),
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer: %w", err)
	}

	id := gpucore.BufferID(a.newID())
	a.mu.Lock()
	a.buffers[id] = buffer
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	buffer, ok := a.buffers[id]
	if ok {
		delete(a.buffers, id)
	}
	a.mu.Unlock()
	if ok {
		a.device.DestroyBuffer(buffer)
	}
}

func (a *Adapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	a.mu.RLock()
	buffer, ok := a.buffers[id]
	a.mu.RUnlock()
	if ok && len(data) > 0 {
		_ = a.queue.WriteBuffer(buffer, offset, data)
	}
}

func (a *Adapter) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.RLock()
	buffer, ok := a.buffers[id]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("wgpu: buffer %d not found", id)
	}
	return a.readback(buffer, offset, size)
}

// readback copies a buffer range into a mappable staging buffer, waits
// for the queue to drain, and maps the staging memory.
func (a *Adapter) readback(buffer hal.Buffer, offset, size uint64) ([]byte, error) {
	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "staging-readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "readback-encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(buffer, staging, []hal.BufferCopy{
		{SrcOffset: offset, DstOffset: 0, Size: size},
	})
	cmdBuffer, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer encoder.Destroy()
	defer a.device.FreeCommandBuffer(cmdBuffer)

	if _, err := a.queue.Submit([]hal.CommandBuffer{cmdBuffer}); err != nil {
		return nil, fmt.Errorf("wgpu: submit readback: %w", err)
	}
	if err := a.device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("wgpu: wait for readback: %w", err)
	}
	a.drainPending()

	mapping, err := a.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("wgpu: map staging buffer: %w", err)
	}
	data := make([]byte, size)
	copy(data, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := a.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("wgpu: unmap staging buffer: %w", err)
	}
	return data, nil
}

func (a *Adapter) CreateTexture(width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: texture dimensions must be positive")
	}
	bpp := format.BytesPerPixel()

	buffer, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Size:  uint64(width * height * bpp),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture buffer: %w", err)
	}

	id := gpucore.TextureID(a.newID())
	a.mu.Lock()
	a.textures[id] = &texture{buffer: buffer, width: width, height: height, bpp: bpp}
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	tex, ok := a.textures[id]
	if ok {
		delete(a.textures, id)
	}
	a.mu.Unlock()
	if ok {
		a.device.DestroyBuffer(tex.buffer)
	}
}

func (a *Adapter) WriteTexture(id gpucore.TextureID, x, y, width, height int, data []byte) {
	a.mu.RLock()
	tex, ok := a.textures[id]
	a.mu.RUnlock()
	if !ok || x < 0 || y < 0 || x+width > tex.width || y+height > tex.height {
		return
	}
	rowBytes := width * tex.bpp
	for row := 0; row < height; row++ {
		offset := uint64(((y+row)*tex.width + x) * tex.bpp)
		_ = a.queue.WriteBuffer(tex.buffer, offset, data[row*rowBytes:(row+1)*rowBytes])
	}
}

func (a *Adapter) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	a.mu.RLock()
	tex, ok := a.textures[id]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("wgpu: texture %d not found", id)
	}
	return a.readback(tex.buffer, 0, uint64(tex.width*tex.height*tex.bpp))
}

func (a *Adapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil bind group layout descriptor")
	}

	halEntries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		halEntries[i] = convertBindGroupLayoutEntry(entry)
	}

	layout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: halEntries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create bind group layout: %w", err)
	}

	id := gpucore.BindGroupLayoutID(a.newID())
	a.mu.Lock()
	a.bindGroupLayouts[id] = layout
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	layout, ok := a.bindGroupLayouts[id]
	if ok {
		delete(a.bindGroupLayouts, id)
	}
	a.mu.Unlock()
	if ok {
		a.device.DestroyBindGroupLayout(layout)
	}
}

func (a *Adapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.RLock()
	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	for i, id := range layouts {
		layout, ok := a.bindGroupLayouts[id]
		if !ok {
			a.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("wgpu: bind group layout %d not found", id)
		}
		halLayouts[i] = layout
	}
	a.mu.RUnlock()

	pipelineLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}

	id := gpucore.PipelineLayoutID(a.newID())
	a.mu.Lock()
	a.pipelineLayouts[id] = pipelineLayout
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	layout, ok := a.pipelineLayouts[id]
	if ok {
		delete(a.pipelineLayouts, id)
	}
	a.mu.Unlock()
	if ok {
		a.device.DestroyPipelineLayout(layout)
	}
}

func (a *Adapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: nil compute pipeline descriptor")
	}

	a.mu.RLock()
	pipelineLayout, layoutOK := a.pipelineLayouts[desc.Layout]
	shaderModule, moduleOK := a.shaderModules[desc.ShaderModule]
	a.mu.RUnlock()
	if !layoutOK {
		return gpucore.InvalidID, fmt.Errorf("wgpu: pipeline layout %d not found", desc.Layout)
	}
	if !moduleOK {
		return gpucore.InvalidID, fmt.Errorf("wgpu: shader module %d not found", desc.ShaderModule)
	}

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Compute: hal.ComputeState{
			Module:     shaderModule,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create compute pipeline: %w", err)
	}

	id := gpucore.ComputePipelineID(a.newID())
	a.mu.Lock()
	a.computePipelines[id] = pipeline
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	pipeline, ok := a.computePipelines[id]
	if ok {
		delete(a.computePipelines, id)
	}
	a.mu.Unlock()
	if ok {
		a.device.DestroyComputePipeline(pipeline)
	}
}

func (a *Adapter) CreateBindGroup(layout gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	a.mu.RLock()
	halLayout, ok := a.bindGroupLayouts[layout]
	if !ok {
		a.mu.RUnlock()
		return gpucore.InvalidID, fmt.Errorf("wgpu: bind group layout %d not found", layout)
	}

	halEntries := make([]gputypes.BindGroupEntry, len(entries))
	for i, entry := range entries {
		halEntry, err := a.convertBindGroupEntry(entry)
		if err != nil {
			a.mu.RUnlock()
			return gpucore.InvalidID, fmt.Errorf("wgpu: bind group entry %d: %w", entry.Binding, err)
		}
		halEntries[i] = halEntry
	}
	a.mu.RUnlock()

	bindGroup, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Layout:  halLayout,
		Entries: halEntries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create bind group: %w", err)
	}

	id := gpucore.BindGroupID(a.newID())
	a.mu.Lock()
	a.bindGroups[id] = bindGroup
	a.mu.Unlock()
	return id, nil
}

func (a *Adapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	group, ok := a.bindGroups[id]
	if ok {
		delete(a.bindGroups, id)
	}
	a.mu.Unlock()
	if ok {
		a.device.DestroyBindGroup(group)
	}
}

// BeginComputePass begins a compute pass, creating the frame's command
// encoder on first use. Submit ends and flushes the encoder.
func (a *Adapter) BeginComputePass() gpucore.ComputePassEncoder {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasEncoder {
		encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
			Label: "compose-encoder",
		})
		if err != nil {
			return &passEncoder{adapter: a}
		}
		if err := encoder.BeginEncoding("compose"); err != nil {
			encoder.Destroy()
			return &passEncoder{adapter: a}
		}
		a.encoder = encoder
		a.hasEncoder = true
	}

	halPass := a.encoder.BeginComputePass(&hal.ComputePassDescriptor{
		Label: "compose",
	})
	return &passEncoder{adapter: a, pass: halPass}
}

// Submit flushes the current command encoder, fire and forget. The
// command buffer stays alive until WaitIdle observes GPU completion.
func (a *Adapter) Submit() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasEncoder || a.encoder == nil {
		return
	}
	encoder := a.encoder
	a.encoder = nil
	a.hasEncoder = false

	cmdBuffer, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		return
	}
	if _, err := a.queue.Submit([]hal.CommandBuffer{cmdBuffer}); err != nil {
		a.device.FreeCommandBuffer(cmdBuffer)
		encoder.Destroy()
		return
	}
	a.pending = append(a.pending, pendingWork{cmd: cmdBuffer, enc: encoder})
}

// WaitIdle submits pending work, blocks until the GPU drains, and frees
// completed command buffers.
func (a *Adapter) WaitIdle() {
	a.Submit()
	if err := a.device.WaitIdle(); err != nil {
		return
	}
	a.drainPending()
}

// drainPending frees command buffers whose work has completed. Call only
// after Device.WaitIdle.
func (a *Adapter) drainPending() {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()
	for _, work := range pending {
		a.device.FreeCommandBuffer(work.cmd)
		work.enc.Destroy()
	}
}

func convertBufferUsage(usage gpucore.BufferUsage) gputypes.BufferUsage {
	var result gputypes.BufferUsage
	if usage&gpucore.BufferUsageMapRead != 0 {
		result |= gputypes.BufferUsageMapRead
	}
	if usage&gpucore.BufferUsageMapWrite != 0 {
		result |= gputypes.BufferUsageMapWrite
	}
	if usage&gpucore.BufferUsageCopySrc != 0 {
		result |= gputypes.BufferUsageCopySrc
	}
	if usage&gpucore.BufferUsageCopyDst != 0 {
		result |= gputypes.BufferUsageCopyDst
	}
	if usage&gpucore.BufferUsageUniform != 0 {
		result |= gputypes.BufferUsageUniform
	}
	if usage&gpucore.BufferUsageStorage != 0 {
		result |= gputypes.BufferUsageStorage
	}
	return result
}

func convertBindGroupLayoutEntry(entry gpucore.BindGroupLayoutEntry) gputypes.BindGroupLayoutEntry {
	result := gputypes.BindGroupLayoutEntry{
		Binding:    entry.Binding,
		Visibility: gputypes.ShaderStageCompute,
	}
	switch entry.Type {
	case gpucore.BindingTypeUniformBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpucore.BindingTypeStorageBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpucore.BindingTypeReadOnlyStorageBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeReadOnlyStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	}
	return result
}

// convertBindGroupEntry resolves an entry to its HAL binding. Texture
// entries bind the texture's backing storage buffer. Must be called with
// mu held.
func (a *Adapter) convertBindGroupEntry(entry gpucore.BindGroupEntry) (gputypes.BindGroupEntry, error) {
	result := gputypes.BindGroupEntry{
		Binding: entry.Binding,
	}
	switch {
	case entry.Buffer != gpucore.InvalidID:
		buffer, ok := a.buffers[entry.Buffer]
		if !ok {
			return result, fmt.Errorf("buffer %d not found", entry.Buffer)
		}
		result.Resource = gputypes.BufferBinding{
			Buffer: buffer.NativeHandle(),
			Offset: entry.Offset,
			Size:   entry.Size,
		}
	case entry.Texture != gpucore.InvalidID:
		tex, ok := a.textures[entry.Texture]
		if !ok {
			return result, fmt.Errorf("texture %d not found", entry.Texture)
		}
		result.Resource = gputypes.BufferBinding{
			Buffer: tex.buffer.NativeHandle(),
			Size:   uint64(tex.width * tex.height * tex.bpp),
		}
	default:
		return result, fmt.Errorf("entry binds no resource")
	}
	return result, nil
}

// passEncoder implements gpucore.ComputePassEncoder over a HAL pass.
// A nil pass makes every method a no-op.
type passEncoder struct {
	adapter *Adapter
	pass    hal.ComputePassEncoder
}

func (e *passEncoder) SetPipeline(pipeline gpucore.ComputePipelineID) {
	if e.pass == nil {
		return
	}
	e.adapter.mu.RLock()
	halPipeline, ok := e.adapter.computePipelines[pipeline]
	e.adapter.mu.RUnlock()
	if ok {
		e.pass.SetPipeline(halPipeline)
	}
}

func (e *passEncoder) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	if e.pass == nil {
		return
	}
	e.adapter.mu.RLock()
	halGroup, ok := e.adapter.bindGroups[group]
	e.adapter.mu.RUnlock()
	if ok {
		e.pass.SetBindGroup(index, halGroup, nil)
	}
}

func (e *passEncoder) Dispatch(x, y, z uint32) {
	if e.pass == nil {
		return
	}
	e.pass.Dispatch(x, y, z)
}

func (e *passEncoder) End() {
	if e.pass == nil {
		return
	}
	e.pass.End()
}
