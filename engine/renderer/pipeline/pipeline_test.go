package pipeline

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func newFrameLayout(t *testing.T, d *gputest.Device) gpu.BindGroupLayout {
	t.Helper()
	layout, err := frame_resource.NewFrameLayout(d)
	if err != nil {
		t.Fatalf("NewFrameLayout: %v", err)
	}
	return layout
}

func TestBuildRenderPipeline(t *testing.T) {
	d := gputest.NewDevice()
	frame := newFrameLayout(t, d)

	p := NewPipeline("GBuffer", PipelineTypeRender,
		WithShader(shader.NewShader("gbuffer", shader.ShaderTypeRender)),
		WithColorTargets(wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA16Float),
		WithDepth(wgpu.TextureFormatDepth24PlusStencil8, true, wgpu.CompareFunctionLess),
		WithCullMode(wgpu.CullModeBack),
	)
	if err := p.Build(d, frame); err != nil {
		t.Fatalf("Build: %v", err)
	}

	rps := d.ObjectsOfKind("render pipeline")
	if len(rps) != 1 {
		t.Fatalf("created %d render pipelines, want 1", len(rps))
	}
	desc := rps[0].Render
	if desc.VertexEntry != "vs_main" || desc.FragmentEntry != "fs_main" {
		t.Errorf("entries = %q, %q", desc.VertexEntry, desc.FragmentEntry)
	}
	if len(desc.ColorFormats) != 3 || desc.DepthFormat != wgpu.TextureFormatDepth24PlusStencil8 || desc.CullMode != wgpu.CullModeBack {
		t.Errorf("render desc = %+v", desc)
	}
	if len(desc.VertexBuffers) != 1 || desc.VertexBuffers[0].Stride != 44 {
		t.Errorf("vertex buffers = %+v", desc.VertexBuffers)
	}

	layouts := d.ObjectsOfKind("pipeline layout")
	if len(layouts) != 1 || len(layouts[0].Groups) != 2 || layouts[0].Groups[0] != frame {
		t.Fatalf("pipeline layout groups = %+v, want frame layout then group 1", layouts)
	}
	group1 := p.BindGroupLayout(1)
	if group1 == nil || len(group1.Entries()) != 3 || group1.Entries()[2].Name != "aniso_wrap" {
		t.Errorf("group 1 layout = %+v", group1)
	}
}

func TestBuildComputePipeline(t *testing.T) {
	d := gputest.NewDevice()
	frame := newFrameLayout(t, d)

	p := NewPipeline("Tone Mapping", PipelineTypeCompute, WithShader(shader.NewShader("tone_mapping", shader.ShaderTypeCompute)))
	if err := p.Build(d, frame); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.ComputePipeline() == nil || p.RenderPipeline() != nil {
		t.Fatal("compute pipeline not built")
	}
	if got := d.ObjectsOfKind("compute pipeline")[0].Compute.Entry; got != "cs_main" {
		t.Errorf("entry = %q", got)
	}
	modules := d.ObjectsOfKind("shader module")
	if len(modules) != 1 || !strings.Contains(modules[0].Source, "uncharted2") {
		t.Error("shader module was not created from the processed source")
	}
}

func TestBuildFillsGroupGaps(t *testing.T) {
	src := `@group(2) @binding(0) var tex: texture_2d<f32>;
@compute @workgroup_size(1) fn cs_main() {}`
	s, err := shader.NewShaderFromSource("gap", shader.ShaderTypeCompute, src)
	if err != nil {
		t.Fatalf("NewShaderFromSource: %v", err)
	}
	d := gputest.NewDevice()
	frame := newFrameLayout(t, d)

	p := NewPipeline("Gap", PipelineTypeCompute, WithShader(s))
	if err := p.Build(d, frame); err != nil {
		t.Fatalf("Build: %v", err)
	}
	groups := d.ObjectsOfKind("pipeline layout")[0].Groups
	if len(groups) != 3 || len(groups[1].Entries()) != 0 || len(groups[2].Entries()) != 1 {
		t.Errorf("groups = %d, want frame, empty, tex", len(groups))
	}
}

func TestBuildRejectsMismatchedFrameGroup(t *testing.T) {
	src := `@group(0) @binding(1) var<uniform> pass_cb: vec4<f32>;
@compute @workgroup_size(1) fn cs_main() {}`
	s, err := shader.NewShaderFromSource("bad", shader.ShaderTypeCompute, src)
	if err != nil {
		t.Fatalf("NewShaderFromSource: %v", err)
	}
	d := gputest.NewDevice()
	frame := newFrameLayout(t, d)

	if err := NewPipeline("Bad", PipelineTypeCompute, WithShader(s)).Build(d, frame); err == nil {
		t.Fatal("mismatched group 0 name was accepted")
	}
	if len(d.ObjectsOfKind("shader module")) != 0 {
		t.Error("objects were created before validation failed")
	}
}

func TestBuildRejectsWrongShaderType(t *testing.T) {
	d := gputest.NewDevice()
	frame := newFrameLayout(t, d)
	p := NewPipeline("FXAA", PipelineTypeRender, WithShader(shader.NewShader("fxaa", shader.ShaderTypeCompute)))
	if err := p.Build(d, frame); err == nil {
		t.Fatal("compute shader accepted by a render pipeline")
	}
	if err := NewPipeline("Empty", PipelineTypeCompute).Build(d, frame); err == nil {
		t.Fatal("pipeline without a shader was built")
	}
}

func TestBuildFailureReleasesObjects(t *testing.T) {
	d := gputest.NewDevice()
	frame := newFrameLayout(t, d)
	d.FailOn = "Sky Box Layout"

	p := NewPipeline("Sky Box", PipelineTypeCompute, WithShader(shader.NewShader("sky_box", shader.ShaderTypeCompute)))
	if err := p.Build(d, frame); err == nil {
		t.Fatal("Build succeeded on a failing device")
	}
	module := d.ObjectsOfKind("shader module")
	if len(module) != 1 || module[0].Released != 1 {
		t.Errorf("shader module not released after failure")
	}
	for _, o := range d.ObjectsOfKind("bind group layout") {
		want := 1
		if o.Label() == "Frame Layout" {
			want = 0
		}
		if o.Released != want {
			t.Errorf("layout %q released %d times, want %d", o.Label(), o.Released, want)
		}
	}
}

func TestRelease(t *testing.T) {
	d := gputest.NewDevice()
	frame := newFrameLayout(t, d)
	p := NewPipeline("Sky Box", PipelineTypeCompute, WithShader(shader.NewShader("sky_box", shader.ShaderTypeCompute)))
	if err := p.Build(d, frame); err != nil {
		t.Fatalf("Build: %v", err)
	}
	p.Release()
	p.Release()
	for _, o := range d.Objects {
		want := 1
		if o.Label() == "Frame Layout" {
			want = 0
		}
		if o.Released != want {
			t.Errorf("%s %q released %d times, want %d", o.Kind, o.Label(), o.Released, want)
		}
	}
}
