package pass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// SHIndirectPass cone-traces the voxel cascades from every cell of a coarse grid and projects
// the gathered radiance onto second-order spherical harmonics, one grid per color channel.
//
// Inputs: VoxelGrids the cascades, finest first.
type SHIndirectPass struct {
	basePass

	pipeline pipeline.Pipeline
	provider bind_group_provider.BindGroupProvider
}

var _ RenderPass = &SHIndirectPass{}

// SH output order.
var shChannels = [...]string{"sh_r", "sh_g", "sh_b"}

// NewSHIndirectPass returns an uninitialized SH indirect pass.
func NewSHIndirectPass() *SHIndirectPass {
	return &SHIndirectPass{basePass: basePass{name: NameSHIndirect}}
}

func (p *SHIndirectPass) BuildRootSignature() {
	p.cfg.IsComputePass = true
	if p.cfg.SHGridResolution <= 0 {
		p.cfg.SHGridResolution = DefaultSHGridResolution
	}
	p.pipeline = p.newPipeline(p.name, p.shaderName("sh_indirect"), true)
}

func (p *SHIndirectPass) BuildDescriptorHeaps() {
	if len(p.cfg.VoxelGrids) != DefaultCascadeCount {
		fatalf(p.name, "descriptor table", fmt.Errorf("%w: want %d voxel grids, got %d",
			ErrInvalidVoxelConfig, DefaultCascadeCount, len(p.cfg.VoxelGrids)))
	}
	bind := voxelBindings(p.cfg.VoxelGrids)
	n := p.cfg.SHGridResolution
	for _, ch := range shChannels {
		tex := p.createTexture(textureDesc{
			label:  fmt.Sprintf("%s %s", p.name, ch),
			width:  n,
			height: n,
			depth:  n,
			format: wgpu.TextureFormatRGBA8Unorm,
			dim:    gpu.TextureDimension3D,
			usage:  wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
			state:  gpu.StateGenericRead,
		})
		p.outputs = append(p.outputs, tex)
		bind[ch] = tex
	}
	p.provider = p.newProvider(p.name, bind_group_provider.WithTextures(bind))
}

func (p *SHIndirectPass) BuildPSOs() {
	p.buildPipeline(p.pipeline, p.provider)
}

func (p *SHIndirectPass) Execute(cmd gpu.CommandList, dsv gpu.Texture, frame *frame_resource.FrameResource) {
	n := p.cfg.SHGridResolution
	transition(cmd, gpu.StateGenericRead, gpu.StateUnorderedAccess, p.outputs...)
	p.dispatch(cmd, frame, p.pipeline, p.provider, n, n, n)
	transition(cmd, gpu.StateUnorderedAccess, gpu.StateGenericRead, p.outputs...)
}
