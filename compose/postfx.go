package compose

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"regexp"

	_ "embed"

	"github.com/gogpu/termgrid/gpucore"
)

//go:embed shaders/retro.wgsl
var retroShaderWGSL string

// RetroShader returns the builtin retro terminal effect shader. It does
// not reference the time uniform, so it never forces continuous redraws.
func RetroShader() string {
	return retroShaderWGSL
}

const postUniformSize = 4 * 4

// PostStage runs an optional user supplied shader over the composited
// frame. The shader binds a uniform block at 0 and the frame pixels as a
// read-write storage binding at 1. The uniform block starts with the
// target width and height; a shader that declares a field named "time"
// receives the frame time in seconds at the third slot.
type PostStage struct {
	adapter gpucore.Adapter

	module     gpucore.ShaderModuleID
	bindLayout gpucore.BindGroupLayoutID
	pipeLayout gpucore.PipelineLayoutID
	pipeline   gpucore.ComputePipelineID
	uniformBuf gpucore.BufferID

	continuous bool
}

var timeUniformRe = regexp.MustCompile(`\btime\b`)

// referencesTime reports whether the shader source mentions the time
// uniform outside comments. A match forces per-frame redraws.
func referencesTime(source string) bool {
	stripped := regexp.MustCompile(`//[^\n]*`).ReplaceAllString(source, "")
	stripped = regexp.MustCompile(`(?s)/\*.*?\*/`).ReplaceAllString(stripped, "")
	return timeUniformRe.MatchString(stripped)
}

// NewPostStage compiles a post-process shader. The caller is expected to
// treat a returned error as a recoverable degradation, not a render
// failure.
func NewPostStage(adapter gpucore.Adapter, source, label string) (*PostStage, error) {
	if adapter == nil || !adapter.SupportsCompute() {
		return nil, fmt.Errorf("post stage %q: adapter has no compute support", label)
	}

	spirv, err := CompileWGSL(source)
	if err != nil {
		return nil, fmt.Errorf("post stage %q: %w", label, err)
	}

	s := &PostStage{adapter: adapter, continuous: referencesTime(source)}
	fail := func(err error) (*PostStage, error) {
		s.Release()
		return nil, fmt.Errorf("post stage %q: %w", label, err)
	}

	if s.module, err = adapter.CreateShaderModule(spirv, label); err != nil {
		return fail(err)
	}
	s.bindLayout, err = adapter.CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Label: label,
		Entries: []gpucore.BindGroupLayoutEntry{
			{Binding: 0, Type: gpucore.BindingTypeUniformBuffer, MinBindingSize: postUniformSize},
			{Binding: 1, Type: gpucore.BindingTypeStorageBuffer},
		},
	})
	if err != nil {
		return fail(err)
	}
	if s.pipeLayout, err = adapter.CreatePipelineLayout([]gpucore.BindGroupLayoutID{s.bindLayout}); err != nil {
		return fail(err)
	}
	s.pipeline, err = adapter.CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label:        label,
		Layout:       s.pipeLayout,
		ShaderModule: s.module,
		EntryPoint:   "main",
	})
	if err != nil {
		return fail(err)
	}
	if s.uniformBuf, err = adapter.CreateBuffer(postUniformSize, gpucore.BufferUsageUniform|gpucore.BufferUsageCopyDst); err != nil {
		return fail(err)
	}
	return s, nil
}

// RequiresContinuousRedraw reports whether the shader consumes the time
// uniform and therefore needs a redraw every frame.
func (s *PostStage) RequiresContinuousRedraw() bool {
	return s.continuous
}

// Apply runs the stage in place over the target texture.
func (s *PostStage) Apply(target gpucore.TextureID, size image.Point, time float32) error {
	u := make([]byte, postUniformSize)
	binary.LittleEndian.PutUint32(u[0:], uint32(size.X))
	binary.LittleEndian.PutUint32(u[4:], uint32(size.Y))
	binary.LittleEndian.PutUint32(u[8:], math.Float32bits(time))
	s.adapter.WriteBuffer(s.uniformBuf, 0, u)

	group, err := s.adapter.CreateBindGroup(s.bindLayout, []gpucore.BindGroupEntry{
		{Binding: 0, Buffer: s.uniformBuf},
		{Binding: 1, Texture: target},
	})
	if err != nil {
		return fmt.Errorf("post stage: bind group: %w", err)
	}
	defer s.adapter.DestroyBindGroup(group)

	pass := s.adapter.BeginComputePass()
	pass.SetPipeline(s.pipeline)
	pass.SetBindGroup(0, group)
	pass.Dispatch(uint32(size.X+7)/8, uint32(size.Y+7)/8, 1)
	pass.End()
	s.adapter.Submit()
	return nil
}

// Release destroys the stage's GPU resources.
func (s *PostStage) Release() {
	ad := s.adapter
	if ad == nil {
		return
	}
	if s.pipeline != gpucore.InvalidID {
		ad.DestroyComputePipeline(s.pipeline)
	}
	if s.pipeLayout != gpucore.InvalidID {
		ad.DestroyPipelineLayout(s.pipeLayout)
	}
	if s.bindLayout != gpucore.InvalidID {
		ad.DestroyBindGroupLayout(s.bindLayout)
	}
	if s.module != gpucore.InvalidID {
		ad.DestroyShaderModule(s.module)
	}
	if s.uniformBuf != gpucore.InvalidID {
		ad.DestroyBuffer(s.uniformBuf)
	}
	*s = PostStage{}
}
