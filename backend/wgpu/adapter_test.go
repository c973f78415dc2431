//go:build !nogpu

package wgpu

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgrid/gpucore"
)

func TestNewRequiresDeviceAndQueue(t *testing.T) {
	if _, err := New(nil, nil, nil); err == nil {
		t.Error("expected error for nil device and queue")
	}
}

func TestConvertBufferUsage(t *testing.T) {
	tests := []struct {
		name string
		in   gpucore.BufferUsage
		want gputypes.BufferUsage
	}{
		{"map read", gpucore.BufferUsageMapRead, gputypes.BufferUsageMapRead},
		{"map write", gpucore.BufferUsageMapWrite, gputypes.BufferUsageMapWrite},
		{"copy src", gpucore.BufferUsageCopySrc, gputypes.BufferUsageCopySrc},
		{"copy dst", gpucore.BufferUsageCopyDst, gputypes.BufferUsageCopyDst},
		{"uniform", gpucore.BufferUsageUniform, gputypes.BufferUsageUniform},
		{"storage", gpucore.BufferUsageStorage, gputypes.BufferUsageStorage},
		{
			"staging combo",
			gpucore.BufferUsageMapRead | gpucore.BufferUsageCopyDst,
			gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertBufferUsage(tt.in); got != tt.want {
				t.Errorf("convertBufferUsage(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConvertBindGroupLayoutEntry(t *testing.T) {
	tests := []struct {
		name     string
		bindType gpucore.BindingType
		want     gputypes.BufferBindingType
	}{
		{"uniform", gpucore.BindingTypeUniformBuffer, gputypes.BufferBindingTypeUniform},
		{"storage", gpucore.BindingTypeStorageBuffer, gputypes.BufferBindingTypeStorage},
		{"read-only storage", gpucore.BindingTypeReadOnlyStorageBuffer, gputypes.BufferBindingTypeReadOnlyStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertBindGroupLayoutEntry(gpucore.BindGroupLayoutEntry{
				Binding:        3,
				Type:           tt.bindType,
				MinBindingSize: 64,
			})
			if got.Binding != 3 {
				t.Errorf("binding = %d, want 3", got.Binding)
			}
			if got.Visibility != gputypes.ShaderStageCompute {
				t.Errorf("visibility = %v, want compute", got.Visibility)
			}
			if got.Buffer == nil {
				t.Fatal("expected a buffer binding layout")
			}
			if got.Buffer.Type != tt.want {
				t.Errorf("buffer type = %v, want %v", got.Buffer.Type, tt.want)
			}
			if got.Buffer.MinBindingSize != 64 {
				t.Errorf("min binding size = %d, want 64", got.Buffer.MinBindingSize)
			}
		})
	}
}
