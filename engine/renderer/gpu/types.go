package gpu

import "github.com/cogentcore/webgpu/wgpu"

// BytesPerPixel returns the size of one texel of format in bytes, or 0 for formats that
// cannot be uploaded.
func BytesPerPixel(format wgpu.TextureFormat) uint32 {
	switch format {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb,
		wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb,
		wgpu.TextureFormatR32Float, wgpu.TextureFormatDepth32Float:
		return 4
	case wgpu.TextureFormatRGBA16Float:
		return 8
	case wgpu.TextureFormatRGBA32Float:
		return 16
	}
	return 0
}

// IsDepthFormat reports whether format is a depth or depth-stencil format.
func IsDepthFormat(format wgpu.TextureFormat) bool {
	switch format {
	case wgpu.TextureFormatDepth16Unorm, wgpu.TextureFormatDepth24Plus,
		wgpu.TextureFormatDepth24PlusStencil8, wgpu.TextureFormatDepth32Float,
		wgpu.TextureFormatDepth32FloatStencil8:
		return true
	}
	return false
}

// HasStencil reports whether format carries a stencil aspect.
func HasStencil(format wgpu.TextureFormat) bool {
	return format == wgpu.TextureFormatDepth24PlusStencil8 || format == wgpu.TextureFormatDepth32FloatStencil8
}

// IsSrgb reports whether writes to format are sRGB encoded.
func IsSrgb(format wgpu.TextureFormat) bool {
	return format == wgpu.TextureFormatRGBA8UnormSrgb || format == wgpu.TextureFormatBGRA8UnormSrgb
}

func stripSrgb(format wgpu.TextureFormat) wgpu.TextureFormat {
	switch format {
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8Unorm
	}
	return format
}

// CopyCompatible reports whether a texture-to-texture copy between the two formats is allowed.
func CopyCompatible(src, dst wgpu.TextureFormat) bool {
	return stripSrgb(src) == stripSrgb(dst)
}

// HasUsage reports whether every bit of flag is set in usage.
func HasUsage(usage, flag wgpu.TextureUsage) bool {
	return usage&flag == flag
}

// VertexFormatSize returns the size of one attribute of format in bytes.
func VertexFormatSize(format wgpu.VertexFormat) uint64 {
	switch format {
	case wgpu.VertexFormatFloat32:
		return 4
	case wgpu.VertexFormatFloat32x2:
		return 8
	case wgpu.VertexFormatFloat32x3:
		return 12
	case wgpu.VertexFormatFloat32x4:
		return 16
	}
	return 0
}

// TextureDimension is the shape of a texture resource.
type TextureDimension int

const (
	TextureDimension2D TextureDimension = iota
	TextureDimension3D
	TextureDimensionCube
)

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Label string
	// Width, Height and DepthOrLayers are the extent in texels. DepthOrLayers is the depth
	// of a 3D texture, 6 for a cube map and 1 otherwise.
	Width, Height, DepthOrLayers uint32
	MipLevels                    uint32
	Format                       wgpu.TextureFormat
	Dimension                    TextureDimension
	Usage                        wgpu.TextureUsage
	// InitialState is the tracked state the texture is created in.
	InitialState ResourceState
}

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// SamplerDesc describes a sampler to create.
type SamplerDesc struct {
	Label         string
	Filter        wgpu.FilterMode
	Address       wgpu.AddressMode
	MaxAnisotropy uint16
	// Compare makes a comparison sampler. CompareFunctionUndefined samples normally.
	Compare wgpu.CompareFunction
}

// BindingType classifies a shader resource binding.
type BindingType int

const (
	BindingUniformBuffer BindingType = iota
	BindingStorageBuffer
	BindingReadOnlyStorageBuffer
	BindingSampledTexture
	BindingDepthTexture
	BindingStorageTexture
	BindingSampler
	BindingComparisonSampler
)

// IsTexture reports whether the binding takes a texture resource.
func (t BindingType) IsTexture() bool {
	return t == BindingSampledTexture || t == BindingDepthTexture || t == BindingStorageTexture
}

// IsBuffer reports whether the binding takes a buffer resource.
func (t BindingType) IsBuffer() bool {
	return t == BindingUniformBuffer || t == BindingStorageBuffer || t == BindingReadOnlyStorageBuffer
}

// IsSampler reports whether the binding takes a sampler.
func (t BindingType) IsSampler() bool {
	return t == BindingSampler || t == BindingComparisonSampler
}

// BindingLayout describes one entry of a bind group layout.
type BindingLayout struct {
	Binding    uint32
	Name       string
	Type       BindingType
	Visibility wgpu.ShaderStage

	// ViewDimension of a texture binding. TextureViewDimensionUndefined binds as 2D.
	ViewDimension wgpu.TextureViewDimension
	// Unfilterable marks a float texture binding that may only be loaded, not filtered.
	Unfilterable bool

	// Format and Access apply to storage textures. An undefined access is write-only.
	Format wgpu.TextureFormat
	Access wgpu.StorageTextureAccess

	HasDynamicOffset bool
	MinBindingSize   uint64
}

// BindGroupEntry binds one resource at a binding index. Exactly one of Buffer, Texture
// and Sampler is set.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	// Size is the bound range of Buffer; 0 binds the remainder of the buffer.
	Size    uint64
	Texture Texture
	Sampler Sampler
}

// VertexAttribute is one attribute of a vertex buffer layout.
type VertexAttribute struct {
	Location uint32
	Format   wgpu.VertexFormat
	Offset   uint64
}

// VertexBufferLayout describes the stride and attributes of one vertex buffer slot.
type VertexBufferLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// RenderPipelineDesc describes a rasterization pipeline.
type RenderPipelineDesc struct {
	Label         string
	Layout        PipelineLayout
	Module        ShaderModule
	VertexEntry   string
	FragmentEntry string
	VertexBuffers []VertexBufferLayout
	ColorFormats  []wgpu.TextureFormat

	// DepthFormat is TextureFormatUndefined for pipelines without a depth attachment.
	DepthFormat         wgpu.TextureFormat
	DepthWrite          bool
	DepthCompare        wgpu.CompareFunction
	DepthBias           int32
	DepthBiasSlopeScale float32

	CullMode wgpu.CullMode
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	Label  string
	Layout PipelineLayout
	Module ShaderModule
	Entry  string
}

// ColorAttachment is one render target of a render pass.
type ColorAttachment struct {
	Target     Texture
	Clear      bool
	ClearColor [4]float64
}

// DepthAttachment is the depth target of a render pass.
type DepthAttachment struct {
	Target     Texture
	Clear      bool
	ClearDepth float32
}

// RenderPassDesc describes the attachments of a render pass.
type RenderPassDesc struct {
	Label  string
	Colors []ColorAttachment
	Depth  *DepthAttachment
}
