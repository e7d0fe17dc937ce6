package pass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// DeferredShadingPass shades the gbuffers with the sun and the shadow map by drawing the
// post-processing quad. Its RGBA16F output has alpha 1 on geometry and 0 on the background.
//
// Inputs: GBuffers (3), InputBuffers[0] the shadow map.
type DeferredShadingPass struct {
	basePass

	pipeline pipeline.Pipeline
	provider bind_group_provider.BindGroupProvider
}

var _ RenderPass = &DeferredShadingPass{}

// NewDeferredShadingPass returns an uninitialized deferred shading pass.
func NewDeferredShadingPass() *DeferredShadingPass {
	return &DeferredShadingPass{basePass: basePass{name: NameDeferredShading}}
}

func (p *DeferredShadingPass) BuildRootSignature() {
	p.pipeline = p.newPipeline(p.name, p.shaderName("deferred_shading"), false,
		pipeline.WithColorTargets(wgpu.TextureFormatRGBA16Float),
	)
}

func (p *DeferredShadingPass) BuildDescriptorHeaps() {
	if len(p.cfg.GBuffers) != GBufferCount {
		fatalf(p.name, "descriptor table", fmt.Errorf("want %d gbuffers, got %d", GBufferCount, len(p.cfg.GBuffers)))
	}
	p.addRenderTarget(p.name, wgpu.TextureFormatRGBA16Float)
	p.provider = p.newProvider(p.name, bind_group_provider.WithTextures(map[string]gpu.Texture{
		"gbuffer0":   p.cfg.GBuffers[0],
		"gbuffer1":   p.cfg.GBuffers[1],
		"gbuffer2":   p.cfg.GBuffers[2],
		"shadow_map": p.input(0, "shadow map"),
	}))
}

func (p *DeferredShadingPass) BuildPSOs() {
	p.buildPipeline(p.pipeline, p.provider)
}

func (p *DeferredShadingPass) Execute(cmd gpu.CommandList, dsv gpu.Texture, frame *frame_resource.FrameResource) {
	quad := p.requireScene().PostProcessQuad()
	out := p.outputs[0]

	transition(cmd, gpu.StateGenericRead, gpu.StateRenderTarget, out)
	enc := cmd.BeginRenderPass(gpu.RenderPassDesc{
		Label:  p.name,
		Colors: []gpu.ColorAttachment{{Target: out, Clear: true}},
	})
	enc.SetPipeline(p.pipeline.RenderPipeline())
	enc.SetViewport(0, 0, float32(p.cfg.Width), float32(p.cfg.Height), 0, 1)
	enc.SetBindGroup(1, p.provider.BindGroup())
	drawObject(enc, frame, quad)
	enc.End()
	transition(cmd, gpu.StateRenderTarget, gpu.StateGenericRead, out)
}
