package soft

import (
	"bytes"
	"testing"

	"github.com/gogpu/termgrid/gpucore"
)

func TestBufferRoundTrip(t *testing.T) {
	a := New()
	id, err := a.CreateBuffer(16, gpucore.BufferUsageStorage)
	if err != nil {
		t.Fatal(err)
	}
	a.WriteBuffer(id, 4, []byte{1, 2, 3, 4})
	got, err := a.ReadBuffer(id, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("read back %v", got)
	}
	if _, err := a.ReadBuffer(id, 14, 4); err == nil {
		t.Error("read past end should fail")
	}
	if _, err := a.CreateBuffer(0, 0); err == nil {
		t.Error("zero sized buffer should fail")
	}
}

func TestTextureRectWrite(t *testing.T) {
	a := New()
	id, err := a.CreateTexture(4, 4, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	px := bytes.Repeat([]byte{0xAB}, 2*2*4)
	a.WriteTexture(id, 1, 1, 2, 2, px)
	out, err := a.ReadTexture(id)
	if err != nil {
		t.Fatal(err)
	}
	if out[(1*4+1)*4] != 0xAB {
		t.Error("inside rect not written")
	}
	if out[0] != 0 {
		t.Error("outside rect was touched")
	}
	// Out-of-bounds writes are dropped.
	a.WriteTexture(id, 3, 3, 2, 2, px)
}

func TestResourceCounters(t *testing.T) {
	a := New()
	if a.SupportsCompute() {
		t.Fatal("software adapter must not claim compute support")
	}
	b, _ := a.CreateBuffer(4, 0)
	tex, _ := a.CreateTexture(1, 1, gpucore.TextureFormatR8Unorm)
	sh, _ := a.CreateShaderModule([]uint32{0x07230203}, "t")
	if got := a.Live(); got != 3 {
		t.Fatalf("live = %d, want 3", got)
	}
	a.DestroyBuffer(b)
	a.DestroyTexture(tex)
	a.DestroyShaderModule(sh)
	if got := a.Live(); got != 0 {
		t.Fatalf("live after destroy = %d", got)
	}
	c := a.Created()
	if c.Buffers != 1 || c.Textures != 1 || c.ShaderModules != 1 {
		t.Errorf("created counters = %+v", c)
	}
}
