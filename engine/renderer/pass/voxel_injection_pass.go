package pass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// VoxelInjectionPass clears the cascaded voxel grids and scatters the lit surface of every
// screen pixel into them. Its outputs are the grids, finest first.
//
// Inputs: InputBuffers[0] the deferred lighting, DepthBuffer the scene depth.
type VoxelInjectionPass struct {
	basePass

	resolutions []int

	clear         pipeline.Pipeline
	clearProvider bind_group_provider.BindGroupProvider
	inject        pipeline.Pipeline
	provider      bind_group_provider.BindGroupProvider
}

var _ RenderPass = &VoxelInjectionPass{}

// NewVoxelInjectionPass returns an uninitialized voxel injection pass.
func NewVoxelInjectionPass() *VoxelInjectionPass {
	return &VoxelInjectionPass{basePass: basePass{name: NameVoxelInjection}}
}

// voxelBindings returns the shader variable names of the cascade grids mapped to grids.
func voxelBindings(grids []gpu.Texture) map[string]gpu.Texture {
	out := make(map[string]gpu.Texture, len(grids))
	for i, g := range grids {
		out[fmt.Sprintf("voxel%d", i)] = g
	}
	return out
}

func (p *VoxelInjectionPass) BuildRootSignature() {
	p.cfg.IsComputePass = true
	if p.cfg.VoxelResolution == 0 {
		p.cfg.VoxelResolution = DefaultVoxelResolution
	}
	if p.cfg.CascadeCount == 0 {
		p.cfg.CascadeCount = DefaultCascadeCount
	}
	if p.cfg.CascadeCount != DefaultCascadeCount {
		fatalf(p.name, "voxel cascades", fmt.Errorf("%w: shaders bind %d cascades, got %d",
			ErrInvalidVoxelConfig, DefaultCascadeCount, p.cfg.CascadeCount))
	}
	res, err := CascadeResolutions(p.cfg.VoxelResolution, p.cfg.CascadeCount)
	if err != nil {
		fatalf(p.name, "voxel cascades", err)
	}
	p.resolutions = res

	p.clear = p.newPipeline(p.name+" Clear", "voxel_clear", true)
	p.inject = p.newPipeline(p.name, p.shaderName("voxel_injection"), true)
}

func (p *VoxelInjectionPass) BuildDescriptorHeaps() {
	for i, r := range p.resolutions {
		p.outputs = append(p.outputs, p.createTexture(textureDesc{
			label:  fmt.Sprintf("%s Cascade %d", p.name, i),
			width:  r,
			height: r,
			depth:  r,
			format: wgpu.TextureFormatRGBA8Unorm,
			dim:    gpu.TextureDimension3D,
			usage:  wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
			state:  gpu.StateGenericRead,
		}))
	}

	grids := voxelBindings(p.outputs)
	p.clearProvider = p.newProvider(p.name+" Clear", bind_group_provider.WithTextures(grids))

	bind := voxelBindings(p.outputs)
	bind["lighting"] = p.input(0, "lighting")
	bind["depth"] = p.cfg.DepthBuffer
	p.provider = p.newProvider(p.name, bind_group_provider.WithTextures(bind))
}

func (p *VoxelInjectionPass) BuildPSOs() {
	p.buildPipeline(p.clear, p.clearProvider)
	p.buildPipeline(p.inject, p.provider)
}

// Resolutions returns the edge length of every cascade, finest first.
func (p *VoxelInjectionPass) Resolutions() []int {
	return p.resolutions
}

func (p *VoxelInjectionPass) Execute(cmd gpu.CommandList, dsv gpu.Texture, frame *frame_resource.FrameResource) {
	transition(cmd, gpu.StateGenericRead, gpu.StateUnorderedAccess, p.outputs...)
	res := p.resolutions[0]
	p.dispatch(cmd, frame, p.clear, p.clearProvider, res, res, res)
	p.dispatch(cmd, frame, p.inject, p.provider, p.cfg.Width, p.cfg.Height, 1)
	transition(cmd, gpu.StateUnorderedAccess, gpu.StateGenericRead, p.outputs...)
}
