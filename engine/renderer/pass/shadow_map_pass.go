package pass

import (
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// ShadowMapPass renders light-space depth of every scene object into an RGBA16F target (red
// depth, green depth squared). It owns a Depth32Float depth buffer that moves from Common to
// DepthWrite on first use and stays there.
type ShadowMapPass struct {
	basePass

	pipeline pipeline.Pipeline
	depth    gpu.Texture
}

var _ RenderPass = &ShadowMapPass{}

// NewShadowMapPass returns an uninitialized shadow map pass.
func NewShadowMapPass() *ShadowMapPass {
	return &ShadowMapPass{basePass: basePass{name: NameShadowMap}}
}

func (p *ShadowMapPass) size() (int, int) {
	if p.cfg.ShadowMapSize > 0 {
		return p.cfg.ShadowMapSize, p.cfg.ShadowMapSize
	}
	return p.cfg.Width, p.cfg.Height
}

func (p *ShadowMapPass) BuildRootSignature() {
	p.pipeline = p.newPipeline(p.name, p.shaderName("shadow_map"), false,
		pipeline.WithColorTargets(wgpu.TextureFormatRGBA16Float),
		pipeline.WithDepth(wgpu.TextureFormatDepth32Float, true, wgpu.CompareFunctionLess),
	)
}

func (p *ShadowMapPass) BuildDescriptorHeaps() {
	w, h := p.size()
	out := p.createTexture(textureDesc{
		label:  p.name,
		width:  w,
		height: h,
		format: wgpu.TextureFormatRGBA16Float,
		usage:  wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		state:  gpu.StateGenericRead,
	})
	p.outputs = append(p.outputs, out)

	p.depth = p.createTexture(textureDesc{
		label:  p.name + " Depth",
		width:  w,
		height: h,
		format: wgpu.TextureFormatDepth32Float,
		usage:  wgpu.TextureUsageRenderAttachment,
		state:  gpu.StateCommon,
	})
	p.owned = append(p.owned, p.depth)
}

func (p *ShadowMapPass) BuildPSOs() {
	p.buildPipeline(p.pipeline, nil)
}

// DepthBuffer returns the pass's own depth buffer.
func (p *ShadowMapPass) DepthBuffer() gpu.Texture {
	return p.depth
}

func (p *ShadowMapPass) Execute(cmd gpu.CommandList, dsv gpu.Texture, frame *frame_resource.FrameResource) {
	s := p.requireScene()
	out := p.outputs[0]

	transition(cmd, gpu.StateGenericRead, gpu.StateRenderTarget, out)
	if p.depth.State() == gpu.StateCommon {
		transition(cmd, gpu.StateCommon, gpu.StateDepthWrite, p.depth)
	}

	w, h := p.size()
	enc := cmd.BeginRenderPass(gpu.RenderPassDesc{
		Label:  p.name,
		Colors: []gpu.ColorAttachment{{Target: out, Clear: true}},
		Depth:  &gpu.DepthAttachment{Target: p.depth, Clear: true, ClearDepth: 1},
	})
	enc.SetPipeline(p.pipeline.RenderPipeline())
	enc.SetViewport(0, 0, float32(w), float32(h), 0, 1)
	for _, o := range s.Objects {
		drawObject(enc, frame, o)
	}
	enc.End()

	transition(cmd, gpu.StateRenderTarget, gpu.StateGenericRead, out)
}
