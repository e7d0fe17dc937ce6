package pass

import (
	"log"

	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gi/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// Pass names, also used as the label prefix of every GPU object a pass creates.
const (
	NameShadowMap          = "Shadow Map"
	NameGBuffer            = "GBuffer"
	NameDeferredShading    = "Deferred Shading"
	NameVoxelInjection     = "Voxel Injection"
	NameSHIndirect         = "SH Indirect"
	NameIndirectLighting   = "Indirect Lighting"
	NameSkyBox             = "Sky Box Pass"
	NameVolumetricLighting = "Volumetric Lighting"
	NameFXAA               = "FXAA"
	NameToneMapping        = "Tone Mapping"
	NameColorGrading       = "Color Grading"
)

// Config is everything a pass is initialized with. Only the fields a pass reads need to be set.
type Config struct {
	Width, Height    int
	BackBufferFormat wgpu.TextureFormat
	DepthFormat      wgpu.TextureFormat

	// InputBuffers are the outputs of earlier passes this pass reads, in the order the pass
	// documents.
	InputBuffers []gpu.Texture
	// GBuffers are the GBuffer pass outputs: albedo-opacity, normal-roughness, position-metallic.
	GBuffers []gpu.Texture
	// VoxelGrids are the cascaded voxel grids, finest first.
	VoxelGrids []gpu.Texture
	// DepthBuffer is the shared scene depth buffer, kept in GenericRead between passes.
	DepthBuffer gpu.Texture

	// ShaderName is the render shader of a graphics pass; ComputeShaderName the shader of a
	// compute pass. Empty names select the pass default.
	ShaderName        string
	ComputeShaderName string
	IsComputePass     bool

	FrameLayout gpu.BindGroupLayout
	Samplers    bind_group_provider.StaticSamplers
	Scene       *scene.Scene

	VoxelResolution  int
	CascadeCount     int
	SHGridResolution int
	ShadowMapSize    int
}

// RenderPass is one fixed unit of GPU work. Initialize calls the three Build methods in order;
// afterwards Execute records the pass once per frame. Every output is in GenericRead before and
// after Execute.
type RenderPass interface {
	// Name returns the pass name.
	Name() string

	// BuildRootSignature reflects the pass shaders and describes the pipeline-state objects.
	BuildRootSignature()

	// BuildDescriptorHeaps creates the output textures and registers every resource the pass
	// binds by shader variable name.
	BuildDescriptorHeaps()

	// BuildPSOs creates the pipeline-state objects and builds the descriptor tables against
	// their generated layouts.
	BuildPSOs()

	// Execute records the pass.
	//
	// Parameters:
	//   - cmd: the command list to record into
	//   - dsv: the shared depth buffer
	//   - frame: the frame resource holding the constant buffers for this frame
	Execute(cmd gpu.CommandList, dsv gpu.Texture, frame *frame_resource.FrameResource)

	// OutputBuffers returns the textures the pass writes, owned by the pass.
	OutputBuffers() []gpu.Texture

	// Release releases every GPU object the pass created. It is safe to call more than once.
	Release()
}

// configurable is satisfied by every pass through basePass.
type configurable interface {
	configure(device gpu.Device, cfg Config)
	config() Config
}

// Initialize stores device and cfg on p and runs BuildRootSignature, BuildDescriptorHeaps and
// BuildPSOs in that order. GPU creation failures panic.
//
// Parameters:
//   - p: the pass to initialize
//   - device: the device to create GPU objects on
//   - cfg: the pass configuration
func Initialize(p RenderPass, device gpu.Device, cfg Config) {
	c, ok := p.(configurable)
	if !ok {
		log.Panicf("[RenderPass] %s cannot be initialized", p.Name())
	}
	c.configure(device, cfg)
	p.BuildRootSignature()
	p.BuildDescriptorHeaps()
	p.BuildPSOs()
}

// ConfigOf returns the configuration p was initialized with.
func ConfigOf(p RenderPass) Config {
	if c, ok := p.(configurable); ok {
		return c.config()
	}
	return Config{}
}

// fatalf panics with the pass and object name. GPU objects are never optional.
func fatalf(pass, what string, err error) {
	log.Panicf("[RenderPass] %s: creating %s: %v", pass, what, err)
}

// basePass holds what every pass shares and implements Name, OutputBuffers and Release.
type basePass struct {
	name   string
	device gpu.Device
	cfg    Config

	pipelines []pipeline.Pipeline
	providers []bind_group_provider.BindGroupProvider
	outputs   []gpu.Texture
	// owned are textures the pass created that are not outputs.
	owned []gpu.Texture
}

func (b *basePass) configure(device gpu.Device, cfg Config) {
	b.device = device
	b.cfg = cfg
}

func (b *basePass) config() Config {
	return b.cfg
}

func (b *basePass) Name() string {
	return b.name
}

func (b *basePass) OutputBuffers() []gpu.Texture {
	return b.outputs
}

func (b *basePass) Release() {
	for _, p := range b.providers {
		p.Release()
	}
	b.providers = nil
	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	for _, tex := range b.outputs {
		tex.Release()
	}
	b.outputs = nil
	for _, tex := range b.owned {
		tex.Release()
	}
	b.owned = nil
}

// shaderName returns the configured shader for the pass kind, or def.
func (b *basePass) shaderName(def string) string {
	if b.cfg.IsComputePass {
		return common.Coalesce(b.cfg.ComputeShaderName, def)
	}
	return common.Coalesce(b.cfg.ShaderName, def)
}

// newPipeline describes a pipeline over an embedded shader and tracks it for Release.
func (b *basePass) newPipeline(key, shaderKey string, compute bool, opts ...pipeline.PipelineBuilderOption) pipeline.Pipeline {
	pt, st := pipeline.PipelineTypeRender, shader.ShaderTypeRender
	if compute {
		pt, st = pipeline.PipelineTypeCompute, shader.ShaderTypeCompute
	}
	opts = append([]pipeline.PipelineBuilderOption{pipeline.WithShader(shader.NewShader(shaderKey, st))}, opts...)
	p := pipeline.NewPipeline(key, pt, opts...)
	b.pipelines = append(b.pipelines, p)
	return p
}

// newProvider creates a descriptor table holding the static samplers and tracks it for Release.
func (b *basePass) newProvider(label string, opts ...bind_group_provider.BindGroupProviderOption) bind_group_provider.BindGroupProvider {
	opts = append([]bind_group_provider.BindGroupProviderOption{bind_group_provider.WithSamplers(b.cfg.Samplers)}, opts...)
	p := bind_group_provider.NewBindGroupProvider(label, opts...)
	b.providers = append(b.providers, p)
	return p
}

// buildPipeline builds p against the frame layout and, when the shader declares group 1,
// builds provider against the generated layout.
func (b *basePass) buildPipeline(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) {
	if err := p.Build(b.device, b.cfg.FrameLayout); err != nil {
		fatalf(b.name, "pipeline "+p.PipelineKey(), err)
	}
	if provider == nil {
		return
	}
	layout := p.BindGroupLayout(1)
	if layout == nil {
		log.Panicf("[RenderPass] %s: pipeline %s declares no descriptor table", b.name, p.PipelineKey())
	}
	if _, err := provider.Build(b.device, layout); err != nil {
		fatalf(b.name, "bind group "+provider.Label(), err)
	}
}

// textureDesc describes an output texture created in GenericRead.
type textureDesc struct {
	label                string
	width, height, depth int
	format               wgpu.TextureFormat
	dim                  gpu.TextureDimension
	usage                wgpu.TextureUsage
	state                gpu.ResourceState
}

func (b *basePass) createTexture(d textureDesc) gpu.Texture {
	if d.depth == 0 {
		d.depth = 1
	}
	tex, err := b.device.CreateTexture(gpu.TextureDesc{
		Label:         d.label,
		Width:         uint32(d.width),
		Height:        uint32(d.height),
		DepthOrLayers: uint32(d.depth),
		MipLevels:     1,
		Format:        d.format,
		Dimension:     d.dim,
		Usage:         d.usage,
		InitialState:  d.state,
	})
	if err != nil {
		fatalf(b.name, "texture "+d.label, err)
	}
	return tex
}

// addRenderTarget creates a screen-sized color output bound as a render target.
func (b *basePass) addRenderTarget(label string, format wgpu.TextureFormat) gpu.Texture {
	tex := b.createTexture(textureDesc{
		label:  label,
		width:  b.cfg.Width,
		height: b.cfg.Height,
		format: format,
		usage:  wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		state:  gpu.StateGenericRead,
	})
	b.outputs = append(b.outputs, tex)
	return tex
}

// addStorageTarget creates a screen-sized color output written by a compute shader.
func (b *basePass) addStorageTarget(label string, format wgpu.TextureFormat) gpu.Texture {
	tex := b.createTexture(textureDesc{
		label:  label,
		width:  b.cfg.Width,
		height: b.cfg.Height,
		format: format,
		usage:  wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		state:  gpu.StateGenericRead,
	})
	b.outputs = append(b.outputs, tex)
	return tex
}

// input returns InputBuffers[i], panicking with the pass name when it is missing.
func (b *basePass) input(i int, what string) gpu.Texture {
	if i >= len(b.cfg.InputBuffers) || b.cfg.InputBuffers[i] == nil {
		log.Panicf("[RenderPass] %s: input %d (%s) is missing", b.name, i, what)
	}
	return b.cfg.InputBuffers[i]
}

func (b *basePass) requireScene() *scene.Scene {
	if b.cfg.Scene == nil {
		log.Panicf("[RenderPass] %s: no scene", b.name)
	}
	return b.cfg.Scene
}

// transition moves every texture from before to after.
func transition(cmd gpu.CommandList, before, after gpu.ResourceState, textures ...gpu.Texture) {
	barriers := make([]gpu.Barrier, len(textures))
	for i, tex := range textures {
		barriers[i] = gpu.Transition(tex, before, after)
	}
	cmd.ResourceBarrier(barriers...)
}

// bindGroupSetter is the part of gpu.RenderPassEncoder and gpu.ComputePassEncoder that binds groups.
type bindGroupSetter interface {
	SetBindGroup(index uint32, group gpu.BindGroup, dynamicOffsets ...uint32)
}

// bindFrame binds the frame constants with the object and material ranges of o. A nil o binds
// element 0 of both.
func bindFrame(enc bindGroupSetter, frame *frame_resource.FrameResource, o *scene.RenderObject) {
	var objOffset, matOffset uint32
	if o != nil {
		objOffset = frame.ObjectCB.Offset(o.ObjCBIndex)
		if o.Material != nil {
			matOffset = frame.MaterialCB.Offset(o.Material.MatCBIndex)
		}
	}
	enc.SetBindGroup(0, frame.BindGroup, objOffset, matOffset)
}

// drawObject binds the geometry of o and issues its indexed draw.
func drawObject(enc gpu.RenderPassEncoder, frame *frame_resource.FrameResource, o *scene.RenderObject) {
	bindFrame(enc, frame, o)
	enc.SetVertexBuffer(0, o.Geometry.VertexBuffer)
	enc.SetIndexBuffer(o.Geometry.IndexBuffer)
	enc.DrawIndexed(o.IndexCount, 1, o.StartIndexLocation, o.BaseVertexLocation, 0)
}

// dispatchCount returns the workgroups needed to cover extent with groups of size.
func dispatchCount(extent int, size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	return (uint32(extent) + size - 1) / size
}

// dispatch records one compute pass running p with its descriptor table over the given extent.
func (b *basePass) dispatch(cmd gpu.CommandList, frame *frame_resource.FrameResource, p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, x, y, z int) {
	wg := p.Shader().WorkgroupSize()
	enc := cmd.BeginComputePass(p.PipelineKey())
	enc.SetPipeline(p.ComputePipeline())
	bindFrame(enc, frame, nil)
	if provider != nil {
		enc.SetBindGroup(1, provider.BindGroup())
	}
	enc.Dispatch(dispatchCount(x, wg[0]), dispatchCount(y, wg[1]), dispatchCount(z, wg[2]))
	enc.End()
}

// screenComputePass is a compute pass writing one screen-sized RGBA output from a fixed set of
// named inputs. IndirectLighting, SkyBox, VolumetricLighting, FXAA, ToneMapping and
// ColorGrading are all of this shape.
type screenComputePass struct {
	basePass

	defaultShader string
	outputFormat  wgpu.TextureFormat
	// bind maps the pass config to the resources the shader reads, keyed by variable name.
	bind func(cfg Config) map[string]gpu.Texture

	pipeline pipeline.Pipeline
	provider bind_group_provider.BindGroupProvider
}

func (p *screenComputePass) BuildRootSignature() {
	p.cfg.IsComputePass = true
	p.pipeline = p.newPipeline(p.name, p.shaderName(p.defaultShader), true)
}

func (p *screenComputePass) BuildDescriptorHeaps() {
	out := p.addStorageTarget(p.name+" Output", p.outputFormat)
	p.provider = p.newProvider(p.name, bind_group_provider.WithTextures(p.bind(p.cfg)))
	p.provider.SetTexture("output", out)
}

func (p *screenComputePass) BuildPSOs() {
	p.buildPipeline(p.pipeline, p.provider)
}

func (p *screenComputePass) Execute(cmd gpu.CommandList, dsv gpu.Texture, frame *frame_resource.FrameResource) {
	transition(cmd, gpu.StateGenericRead, gpu.StateUnorderedAccess, p.outputs...)
	p.dispatch(cmd, frame, p.pipeline, p.provider, p.cfg.Width, p.cfg.Height, 1)
	transition(cmd, gpu.StateUnorderedAccess, gpu.StateGenericRead, p.outputs...)
}
