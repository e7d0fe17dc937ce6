package bind_group_provider

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
)

func newTexture(t *testing.T, d *gputest.Device, label string, dim gpu.TextureDimension, format wgpu.TextureFormat, usage wgpu.TextureUsage) gpu.Texture {
	t.Helper()
	tex, err := d.CreateTexture(gpu.TextureDesc{Label: label, Width: 4, Height: 4, Format: format, Dimension: dim, Usage: usage})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	return tex
}

func newLayout(t *testing.T, d *gputest.Device, entries ...gpu.BindingLayout) gpu.BindGroupLayout {
	t.Helper()
	l, err := d.CreateBindGroupLayout("Test Layout", entries)
	if err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	return l
}

func TestBuildResolvesByName(t *testing.T) {
	d := gputest.NewDevice()
	samplers, err := NewStaticSamplers(d)
	if err != nil {
		t.Fatalf("NewStaticSamplers: %v", err)
	}
	albedo := newTexture(t, d, "Albedo", gpu.TextureDimension2D, wgpu.TextureFormatRGBA16Float, wgpu.TextureUsageTextureBinding)
	out := newTexture(t, d, "Out", gpu.TextureDimension2D, wgpu.TextureFormatRGBA16Float, wgpu.TextureUsageStorageBinding)
	buf, _ := d.CreateBuffer(gpu.BufferDesc{Label: "Params", Size: 64, Usage: wgpu.BufferUsageUniform})

	layout := newLayout(t, d,
		gpu.BindingLayout{Binding: 0, Name: "output", Type: gpu.BindingStorageTexture, Format: wgpu.TextureFormatRGBA16Float},
		gpu.BindingLayout{Binding: 1, Name: "gbuffer0", Type: gpu.BindingSampledTexture},
		gpu.BindingLayout{Binding: 2, Name: SamplerLinearClamp, Type: gpu.BindingSampler},
		gpu.BindingLayout{Binding: 3, Name: "params", Type: gpu.BindingUniformBuffer},
	)

	p := NewBindGroupProvider("Test", WithTexture("gbuffer0", albedo), WithSamplers(samplers))
	p.SetTexture("output", out)
	p.SetBuffer("params", buf, 16, 32)

	bg, err := p.Build(d, layout)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if bg != p.BindGroup() {
		t.Error("BindGroup() does not return the built group")
	}

	entries := d.ObjectsOfKind("bind group")[0].Entries
	if entries[0].Texture != out || entries[1].Texture != albedo {
		t.Error("textures bound at the wrong bindings")
	}
	if entries[2].Sampler != samplers[SamplerLinearClamp] {
		t.Error("static sampler not resolved by name")
	}
	if entries[3].Buffer != buf || entries[3].Offset != 16 || entries[3].Size != 32 {
		t.Errorf("buffer entry = %+v", entries[3])
	}
}

func TestBuildUnknownBinding(t *testing.T) {
	d := gputest.NewDevice()
	layout := newLayout(t, d, gpu.BindingLayout{Binding: 0, Name: "lighting", Type: gpu.BindingSampledTexture})

	p := NewBindGroupProvider("Missing")
	if _, err := p.Build(d, layout); !errors.Is(err, ErrUnknownBinding) {
		t.Fatalf("Build error = %v, want ErrUnknownBinding", err)
	}
	if len(d.ObjectsOfKind("bind group")) != 0 {
		t.Error("bind group created despite the unresolved binding")
	}
}

func TestBuildIncompatibleBinding(t *testing.T) {
	d := gputest.NewDevice()
	tests := []struct {
		name   string
		entry  gpu.BindingLayout
		dim    gpu.TextureDimension
		format wgpu.TextureFormat
		usage  wgpu.TextureUsage
	}{
		{"2D for 3D", gpu.BindingLayout{Name: "v", Type: gpu.BindingSampledTexture, ViewDimension: wgpu.TextureViewDimension3D}, gpu.TextureDimension2D, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureUsageTextureBinding},
		{"no storage usage", gpu.BindingLayout{Name: "v", Type: gpu.BindingStorageTexture, Format: wgpu.TextureFormatRGBA8Unorm}, gpu.TextureDimension2D, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureUsageTextureBinding},
		{"storage format", gpu.BindingLayout{Name: "v", Type: gpu.BindingStorageTexture, Format: wgpu.TextureFormatRGBA16Float}, gpu.TextureDimension2D, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureUsageStorageBinding},
		{"color as depth", gpu.BindingLayout{Name: "v", Type: gpu.BindingDepthTexture}, gpu.TextureDimension2D, wgpu.TextureFormatRGBA16Float, wgpu.TextureUsageTextureBinding},
		{"depth as color", gpu.BindingLayout{Name: "v", Type: gpu.BindingSampledTexture}, gpu.TextureDimension2D, wgpu.TextureFormatDepth32Float, wgpu.TextureUsageTextureBinding},
		{"cube", gpu.BindingLayout{Name: "v", Type: gpu.BindingSampledTexture, ViewDimension: wgpu.TextureViewDimensionCube}, gpu.TextureDimension2D, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureUsageTextureBinding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex := newTexture(t, d, tt.name, tt.dim, tt.format, tt.usage)
			p := NewBindGroupProvider(tt.name, WithTexture("v", tex))
			if _, err := p.Build(d, newLayout(t, d, tt.entry)); !errors.Is(err, ErrIncompatibleBinding) {
				t.Errorf("Build error = %v, want ErrIncompatibleBinding", err)
			}
		})
	}
}

func TestRebuildReleasesPrevious(t *testing.T) {
	d := gputest.NewDevice()
	tex := newTexture(t, d, "Tex", gpu.TextureDimension2D, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureUsageTextureBinding)
	layout := newLayout(t, d, gpu.BindingLayout{Name: "tex", Type: gpu.BindingSampledTexture})

	p := NewBindGroupProvider("Rebuild", WithTextures(map[string]gpu.Texture{"tex": tex}))
	if _, err := p.Build(d, layout); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := p.Build(d, layout); err != nil {
		t.Fatalf("Build: %v", err)
	}
	groups := d.ObjectsOfKind("bind group")
	if groups[0].Released != 1 || groups[1].Released != 0 {
		t.Errorf("released = %d, %d, want 1, 0", groups[0].Released, groups[1].Released)
	}
	p.Release()
	p.Release()
	if groups[1].Released != 1 {
		t.Errorf("second group released %d times", groups[1].Released)
	}
	if tex.(*gputest.Texture).Released != 0 {
		t.Error("provider released a borrowed texture")
	}
}

func TestStaticSamplers(t *testing.T) {
	d := gputest.NewDevice()
	s, err := NewStaticSamplers(d)
	if err != nil {
		t.Fatalf("NewStaticSamplers: %v", err)
	}
	for _, name := range []string{SamplerLinearWrap, SamplerAnisoWrap, SamplerLinearClamp, SamplerPointClamp, SamplerShadowCompare} {
		if s[name] == nil {
			t.Errorf("missing static sampler %q", name)
		}
	}
	s.Release()
	if len(s) != 0 {
		t.Error("Release left samplers in the set")
	}
	for _, o := range d.ObjectsOfKind("sampler") {
		if o.Released != 1 {
			t.Errorf("sampler %q released %d times", o.Label(), o.Released)
		}
	}

	d2 := gputest.NewDevice()
	d2.FailOn = SamplerPointClamp
	if _, err := NewStaticSamplers(d2); err == nil {
		t.Fatal("NewStaticSamplers succeeded on a failing device")
	}
	for _, o := range d2.ObjectsOfKind("sampler") {
		if o.Released != 1 {
			t.Errorf("sampler %q leaked after failure", o.Label())
		}
	}
}
