package gpu

import (
	"log"

	"github.com/cogentcore/webgpu/wgpu"
)

const blitSource = `
@group(0) @binding(0) var blit_src: texture_2d<f32>;
@group(0) @binding(1) var blit_sampler: sampler;

struct BlitOut {
	@builtin(position) position: vec4<f32>,
	@location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> BlitOut {
	let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
	var out: BlitOut;
	out.position = vec4<f32>(uv * vec2<f32>(2.0, -2.0) + vec2<f32>(-1.0, 1.0), 0.0, 1.0);
	out.uv = uv;
	return out;
}

@fragment
fn fs_main(in: BlitOut) -> @location(0) vec4<f32> {
	return textureSample(blit_src, blit_sampler, in.uv);
}

// fs_decode undoes the gamma already applied to the source so an srgb target does not encode twice.
@fragment
fn fs_decode(in: BlitOut) -> @location(0) vec4<f32> {
	let c = textureSample(blit_src, blit_sampler, in.uv);
	return vec4<f32>(pow(c.rgb, vec3<f32>(2.2)), c.a);
}
`

// blitter draws a fullscreen triangle sampling one texture into a render target of a
// different format. Pipelines are cached per target format.
type blitter struct {
	module     *wgpu.ShaderModule
	layout     *wgpu.BindGroupLayout
	pipeLayout *wgpu.PipelineLayout
	sampler    *wgpu.Sampler
	pipelines  map[wgpu.TextureFormat]*wgpu.RenderPipeline
}

func newBlitter(device *wgpu.Device) (*blitter, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Blit Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: blitSource,
		},
	})
	if err != nil {
		return nil, err
	}
	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Blit Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	pipeLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Blit Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return nil, err
	}
	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Blit Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	return &blitter{
		module:     module,
		layout:     layout,
		pipeLayout: pipeLayout,
		sampler:    sampler,
		pipelines:  make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
	}, nil
}

func (b *blitter) pipeline(device *wgpu.Device, format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if p, ok := b.pipelines[format]; ok {
		return p, nil
	}
	entry := "fs_main"
	if IsSrgb(format) {
		entry = "fs_decode"
	}
	p, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Blit Pipeline",
		Layout: b.pipeLayout,
		Vertex: wgpu.VertexState{
			Module:     b.module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     b.module,
			EntryPoint: entry,
			Targets: []wgpu.ColorTargetState{
				{Format: format, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	b.pipelines[format] = p
	return p, nil
}

func (b *blitter) release() {
	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	b.sampler.Release()
	b.pipeLayout.Release()
	b.layout.Release()
	b.module.Release()
}

// blitTo records a fullscreen blit of src into dst on the command list.
func (d *wgpuDevice) blitTo(c *wgpuCommandList, src, dst *wgpuTexture) {
	if d.blit == nil {
		b, err := newBlitter(d.device)
		if err != nil {
			log.Panicf("[GPU] blit setup: %v", err)
		}
		d.blit = b
	}
	p, err := d.blit.pipeline(d.device, dst.desc.Format)
	if err != nil {
		log.Panicf("[GPU] blit pipeline for %s: %v", dst.desc.Format, err)
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Blit Bind Group",
		Layout: d.blit.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: src.view},
			{Binding: 1, Sampler: d.blit.sampler},
		},
	})
	if err != nil {
		log.Panicf("[GPU] blit bind group: %v", err)
	}
	c.transient = append(c.transient, bg)

	pass := c.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Blit",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    dst.view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(p)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	pass.Release()
}
