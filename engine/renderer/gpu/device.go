package gpu

import "github.com/cogentcore/webgpu/wgpu"

// Texture is a GPU texture with a default view and a tracked resource state.
type Texture interface {
	Label() string
	Desc() TextureDesc
	State() ResourceState
	// SetState overwrites the tracked state. Command lists call it through Barrier.Apply.
	SetState(state ResourceState)
	Release()
}

// Buffer is a GPU buffer.
type Buffer interface {
	Label() string
	Size() uint64
	Release()
}

// Sampler is a GPU sampler.
type Sampler interface {
	Label() string
	Release()
}

// ShaderModule is a compiled shader source.
type ShaderModule interface {
	Label() string
	Release()
}

// BindGroupLayout is the layout of one bind group, the analogue of a descriptor table range.
type BindGroupLayout interface {
	Label() string
	Entries() []BindingLayout
	Release()
}

// PipelineLayout is an ordered list of bind group layouts, the analogue of a root signature.
type PipelineLayout interface {
	Label() string
	Release()
}

// BindGroup is a set of resources bound against a BindGroupLayout.
type BindGroup interface {
	Label() string
	Release()
}

// RenderPipeline is a rasterization pipeline-state object.
type RenderPipeline interface {
	Label() string
	Release()
}

// ComputePipeline is a compute pipeline-state object.
type ComputePipeline interface {
	Label() string
	Release()
}

// Device creates GPU objects, uploads data and submits recorded work.
//
// Create* failures are returned as errors; the render-pass layer treats them as fatal.
// The fence methods model a monotonically increasing queue fence: Signal enqueues a value
// that completes once all previously submitted work has finished.
type Device interface {
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateBuffer(desc BufferDesc) (Buffer, error)
	CreateSampler(desc SamplerDesc) (Sampler, error)
	CreateShaderModule(label, source string) (ShaderModule, error)
	CreateBindGroupLayout(label string, entries []BindingLayout) (BindGroupLayout, error)
	CreatePipelineLayout(label string, groups []BindGroupLayout) (PipelineLayout, error)
	CreateBindGroup(label string, layout BindGroupLayout, entries []BindGroupEntry) (BindGroup, error)
	CreateRenderPipeline(desc RenderPipelineDesc) (RenderPipeline, error)
	CreateComputePipeline(desc ComputePipelineDesc) (ComputePipeline, error)

	// WriteBuffer copies data into buf at offset before the next submission executes.
	WriteBuffer(buf Buffer, offset uint64, data []byte)

	// WriteTexture uploads tightly packed texels for the full extent of mip 0 of one
	// array layer (or the whole volume of a 3D texture).
	WriteTexture(tex Texture, layer uint32, data []byte)

	CreateCommandList(label string) (CommandList, error)
	Submit(lists ...CommandList)

	Signal(value uint64)
	CompletedValue() uint64
	// WaitForValue blocks until CompletedValue is at least value. There is no timeout.
	WaitForValue(value uint64)

	Release()
}

// SwapChain owns the presentable back buffers.
type SwapChain interface {
	Format() wgpu.TextureFormat
	// AcquireBackBuffer returns the next back buffer in StatePresent.
	AcquireBackBuffer() (Texture, error)
	Present()
	Resize(width, height int)
}

// CommandList records GPU work. Recording order is execution order.
type CommandList interface {
	Label() string
	// ResourceBarrier validates and records state transitions. A barrier whose Before
	// state does not match the tracked state is fatal.
	ResourceBarrier(barriers ...Barrier)
	BeginRenderPass(desc RenderPassDesc) RenderPassEncoder
	BeginComputePass(label string) ComputePassEncoder
	// CopyTexture copies src into dst. src must be in StateCopySource and dst in StateCopyDest.
	CopyTexture(src, dst Texture)
	// Close finishes recording. A closed list can only be submitted or released.
	Close() error
	Release()
}

// RenderPassEncoder records draws inside a render pass.
type RenderPassEncoder interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, group BindGroup, dynamicOffsets ...uint32)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End()
}

// ComputePassEncoder records dispatches inside a compute pass.
type ComputePassEncoder interface {
	SetPipeline(p ComputePipeline)
	SetBindGroup(index uint32, group BindGroup, dynamicOffsets ...uint32)
	Dispatch(x, y, z uint32)
	End()
}
