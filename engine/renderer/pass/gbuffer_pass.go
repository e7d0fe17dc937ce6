package pass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gi/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// GBufferCount is the number of geometry buffers.
const GBufferCount = 3

// GBufferPass rasterizes the visible scene objects into three RGBA16F targets (albedo and opacity,
// world normal and roughness, world position and metallic) and the shared depth buffer.
type GBufferPass struct {
	basePass

	pipeline pipeline.Pipeline
	// tables holds one descriptor table per scene object in Scene.Objects order.
	tables  []bind_group_provider.BindGroupProvider
	tableOf map[*scene.RenderObject]bind_group_provider.BindGroupProvider
	// visible is the culled draw list; nil draws every object.
	visible []*scene.RenderObject
}

var _ RenderPass = &GBufferPass{}

// NewGBufferPass returns an uninitialized gbuffer pass.
func NewGBufferPass() *GBufferPass {
	return &GBufferPass{basePass: basePass{name: NameGBuffer}}
}

func (p *GBufferPass) BuildRootSignature() {
	p.pipeline = p.newPipeline(p.name, p.shaderName("gbuffer"), false,
		pipeline.WithColorTargets(wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA16Float),
		pipeline.WithDepth(p.cfg.DepthFormat, true, wgpu.CompareFunctionLess),
		pipeline.WithCullMode(wgpu.CullModeNone),
	)
}

func (p *GBufferPass) BuildDescriptorHeaps() {
	for _, label := range []string{"Albedo", "Normal", "Position"} {
		p.addRenderTarget(fmt.Sprintf("%s %s", p.name, label), wgpu.TextureFormatRGBA16Float)
	}

	s := p.requireScene()
	p.tables = make([]bind_group_provider.BindGroupProvider, len(s.Objects))
	p.tableOf = make(map[*scene.RenderObject]bind_group_provider.BindGroupProvider, len(s.Objects))
	p.visible = nil
	for i, o := range s.Objects {
		srv := o.Material.DiffuseSrvHeapIndex
		p.tables[i] = p.newProvider(fmt.Sprintf("%s Object %d", p.name, i),
			bind_group_provider.WithTexture("diffuse_map", s.Textures[srv]),
			bind_group_provider.WithTexture("normal_map", s.Textures[srv+1]),
		)
		p.tableOf[o] = p.tables[i]
	}
}

// SetVisibleObjects restricts the next executions to objects, normally the result of
// Scene.VisibleObjects for the camera frustum. Objects the pass has no table for are skipped.
//
// Parameters:
//   - objects: the draw list, or nil to draw every scene object
func (p *GBufferPass) SetVisibleObjects(objects []*scene.RenderObject) {
	p.visible = objects
}

func (p *GBufferPass) BuildPSOs() {
	p.buildPipeline(p.pipeline, nil)
	layout := p.pipeline.BindGroupLayout(1)
	for _, t := range p.tables {
		if _, err := t.Build(p.device, layout); err != nil {
			fatalf(p.name, "bind group "+t.Label(), err)
		}
	}
}

func (p *GBufferPass) Execute(cmd gpu.CommandList, dsv gpu.Texture, frame *frame_resource.FrameResource) {
	s := p.requireScene()

	transition(cmd, gpu.StateGenericRead, gpu.StateRenderTarget, p.outputs...)
	transition(cmd, gpu.StateGenericRead, gpu.StateDepthWrite, dsv)

	colors := make([]gpu.ColorAttachment, len(p.outputs))
	for i, out := range p.outputs {
		colors[i] = gpu.ColorAttachment{Target: out, Clear: true}
	}
	enc := cmd.BeginRenderPass(gpu.RenderPassDesc{
		Label:  p.name,
		Colors: colors,
		Depth:  &gpu.DepthAttachment{Target: dsv, Clear: true, ClearDepth: 1},
	})
	enc.SetPipeline(p.pipeline.RenderPipeline())
	enc.SetViewport(0, 0, float32(p.cfg.Width), float32(p.cfg.Height), 0, 1)
	objects := p.visible
	if objects == nil {
		objects = s.Objects
	}
	for _, o := range objects {
		table, ok := p.tableOf[o]
		if !ok {
			continue
		}
		enc.SetBindGroup(1, table.BindGroup())
		drawObject(enc, frame, o)
	}
	enc.End()

	transition(cmd, gpu.StateDepthWrite, gpu.StateGenericRead, dsv)
	transition(cmd, gpu.StateRenderTarget, gpu.StateGenericRead, p.outputs...)
}
