package gpu

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuTexture struct {
	label string
	desc  TextureDesc
	state ResourceState
	tex   *wgpu.Texture
	view  *wgpu.TextureView
	// depthView is the depth-only view sampled from depth-stencil textures.
	depthView *wgpu.TextureView
	// owned is false for swap chain textures, which are released by the surface.
	owned bool
}

func (t *wgpuTexture) Label() string                { return t.label }
func (t *wgpuTexture) Desc() TextureDesc            { return t.desc }
func (t *wgpuTexture) State() ResourceState         { return t.state }
func (t *wgpuTexture) SetState(state ResourceState) { t.state = state }

func (t *wgpuTexture) Release() {
	if t.depthView != nil {
		t.depthView.Release()
		t.depthView = nil
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		if t.owned {
			t.tex.Release()
		}
		t.tex = nil
	}
}

type wgpuBuffer struct {
	label string
	size  uint64
	buf   *wgpu.Buffer
}

func (b *wgpuBuffer) Label() string { return b.label }
func (b *wgpuBuffer) Size() uint64  { return b.size }
func (b *wgpuBuffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

type wgpuSampler struct {
	label   string
	sampler *wgpu.Sampler
}

func (s *wgpuSampler) Label() string { return s.label }
func (s *wgpuSampler) Release() {
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
}

type wgpuShaderModule struct {
	label  string
	module *wgpu.ShaderModule
}

func (m *wgpuShaderModule) Label() string { return m.label }
func (m *wgpuShaderModule) Release() {
	if m.module != nil {
		m.module.Release()
		m.module = nil
	}
}

type wgpuBindGroupLayout struct {
	label   string
	entries []BindingLayout
	layout  *wgpu.BindGroupLayout
}

func (l *wgpuBindGroupLayout) Label() string            { return l.label }
func (l *wgpuBindGroupLayout) Entries() []BindingLayout { return l.entries }
func (l *wgpuBindGroupLayout) Release() {
	if l.layout != nil {
		l.layout.Release()
		l.layout = nil
	}
}

type wgpuPipelineLayout struct {
	label  string
	layout *wgpu.PipelineLayout
}

func (l *wgpuPipelineLayout) Label() string { return l.label }
func (l *wgpuPipelineLayout) Release() {
	if l.layout != nil {
		l.layout.Release()
		l.layout = nil
	}
}

type wgpuBindGroup struct {
	label string
	group *wgpu.BindGroup
}

func (g *wgpuBindGroup) Label() string { return g.label }
func (g *wgpuBindGroup) Release() {
	if g.group != nil {
		g.group.Release()
		g.group = nil
	}
}

type wgpuRenderPipeline struct {
	label    string
	pipeline *wgpu.RenderPipeline
}

func (p *wgpuRenderPipeline) Label() string { return p.label }
func (p *wgpuRenderPipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}

type wgpuComputePipeline struct {
	label    string
	pipeline *wgpu.ComputePipeline
}

func (p *wgpuComputePipeline) Label() string { return p.label }
func (p *wgpuComputePipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}

// wgpuDevice is the WebGPU implementation of Device and SwapChain.
type wgpuDevice struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	backBuffer    *wgpuTexture

	fenceMu   *sync.Mutex
	completed uint64

	blit *blitter
}

var _ Device = &wgpuDevice{}
var _ SwapChain = &wgpuDevice{}

// WGPUDeviceOptions configures NewWGPUDevice.
type WGPUDeviceOptions struct {
	SurfaceDescriptor    *wgpu.SurfaceDescriptor
	Width, Height        int
	VSync                bool
	ForceFallbackAdapter bool
}

// NewWGPUDevice creates the WebGPU instance, adapter, device and surface and configures the
// surface for presentation. The calling goroutine is locked to its OS thread.
// Any failure to acquire an adapter or device panics.
//
// Parameters:
//   - opts: the surface descriptor, initial surface size and presentation settings
//
// Returns:
//   - Device: the device used to create resources and submit work
//   - SwapChain: the presentation surface, backed by the same object
func NewWGPUDevice(opts WGPUDeviceOptions) (Device, SwapChain) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:          &sync.Mutex{},
		fenceMu:     &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	if opts.VSync {
		d.presentMode = wgpu.PresentModeFifo
	}
	d.surface = d.instance.CreateSurface(opts.SurfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.ForceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		panic(err)
	}
	d.adapter = a

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 4
	limits.MaxStorageTexturesPerShaderStage = 8
	limits.MaxSampledTexturesPerShaderStage = 16

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "GI Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	d.device = dev
	d.queue = dev.GetQueue()
	d.Resize(opts.Width, opts.Height)
	return d, d
}

func (d *wgpuDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q: zero extent", desc.Label)
	}
	layers := desc.DepthOrLayers
	if layers == 0 {
		layers = 1
	}
	if desc.Dimension == TextureDimensionCube {
		layers = 6
	}
	mips := desc.MipLevels
	if mips == 0 {
		mips = 1
	}
	desc.DepthOrLayers = layers
	desc.MipLevels = mips

	dim := wgpu.TextureDimension2D
	if desc.Dimension == TextureDimension3D {
		dim = wgpu.TextureDimension3D
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: mips,
		SampleCount:   1,
		Dimension:     dim,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Label, err)
	}

	var view *wgpu.TextureView
	if desc.Dimension == TextureDimensionCube {
		view, err = tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           desc.Label + " Cube View",
			Format:          desc.Format,
			Dimension:       wgpu.TextureViewDimensionCube,
			BaseMipLevel:    0,
			MipLevelCount:   mips,
			BaseArrayLayer:  0,
			ArrayLayerCount: 6,
			Aspect:          wgpu.TextureAspectAll,
		})
	} else {
		view, err = tex.CreateView(nil)
	}
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("texture %q view: %w", desc.Label, err)
	}
	t := &wgpuTexture{label: desc.Label, desc: desc, state: desc.InitialState, tex: tex, view: view, owned: true}
	if HasStencil(desc.Format) && desc.Usage&wgpu.TextureUsageTextureBinding != 0 {
		t.depthView, err = tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           desc.Label + " Depth View",
			Format:          desc.Format,
			Dimension:       wgpu.TextureViewDimension2D,
			MipLevelCount:   mips,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectDepthOnly,
		})
		if err != nil {
			t.Release()
			return nil, fmt.Errorf("texture %q depth view: %w", desc.Label, err)
		}
	}
	return t, nil
}

func (d *wgpuDevice) CreateBuffer(desc BufferDesc) (Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", desc.Label, err)
	}
	return &wgpuBuffer{label: desc.Label, size: desc.Size, buf: buf}, nil
}

func (d *wgpuDevice) CreateSampler(desc SamplerDesc) (Sampler, error) {
	mipFilter := wgpu.MipmapFilterModeLinear
	if desc.Filter == wgpu.FilterModeNearest {
		mipFilter = wgpu.MipmapFilterModeNearest
	}
	sd := &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  desc.Address,
		AddressModeV:  desc.Address,
		AddressModeW:  desc.Address,
		MagFilter:     desc.Filter,
		MinFilter:     desc.Filter,
		MipmapFilter:  mipFilter,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: max(desc.MaxAnisotropy, 1),
		Compare:       desc.Compare,
	}
	s, err := d.device.CreateSampler(sd)
	if err != nil {
		return nil, fmt.Errorf("sampler %q: %w", desc.Label, err)
	}
	return &wgpuSampler{label: desc.Label, sampler: s}, nil
}

func (d *wgpuDevice) CreateShaderModule(label, source string) (ShaderModule, error) {
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module %q: %w", label, err)
	}
	return &wgpuShaderModule{label: label, module: m}, nil
}

func (d *wgpuDevice) CreateBindGroupLayout(label string, entries []BindingLayout) (BindGroupLayout, error) {
	wentries := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
	for _, e := range entries {
		wentries = append(wentries, toWGPULayoutEntry(e))
	}
	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: wentries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group layout %q: %w", label, err)
	}
	return &wgpuBindGroupLayout{label: label, entries: entries, layout: layout}, nil
}

func (d *wgpuDevice) CreatePipelineLayout(label string, groups []BindGroupLayout) (PipelineLayout, error) {
	layouts := make([]*wgpu.BindGroupLayout, 0, len(groups))
	for i, g := range groups {
		wg, ok := g.(*wgpuBindGroupLayout)
		if !ok || wg.layout == nil {
			return nil, fmt.Errorf("pipeline layout %q: group %d is not a live bind group layout", label, i)
		}
		layouts = append(layouts, wg.layout)
	}
	pl, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline layout %q: %w", label, err)
	}
	return &wgpuPipelineLayout{label: label, layout: pl}, nil
}

func (d *wgpuDevice) CreateBindGroup(label string, layout BindGroupLayout, entries []BindGroupEntry) (BindGroup, error) {
	wl, ok := layout.(*wgpuBindGroupLayout)
	if !ok || wl.layout == nil {
		return nil, fmt.Errorf("bind group %q: layout is not a live bind group layout", label)
	}
	wentries := make([]wgpu.BindGroupEntry, 0, len(entries))
	for _, e := range entries {
		we := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			we.Buffer = e.Buffer.(*wgpuBuffer).buf
			we.Offset = e.Offset
			we.Size = e.Size
			if we.Size == 0 {
				we.Size = wgpu.WholeSize
			}
		case e.Texture != nil:
			t := e.Texture.(*wgpuTexture)
			we.TextureView = t.view
			if t.depthView != nil {
				we.TextureView = t.depthView
			}
		case e.Sampler != nil:
			we.Sampler = e.Sampler.(*wgpuSampler).sampler
		default:
			return nil, fmt.Errorf("bind group %q: binding %d has no resource", label, e.Binding)
		}
		wentries = append(wentries, we)
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  wl.layout,
		Entries: wentries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group %q: %w", label, err)
	}
	return &wgpuBindGroup{label: label, group: bg}, nil
}

func (d *wgpuDevice) CreateRenderPipeline(desc RenderPipelineDesc) (RenderPipeline, error) {
	layout, ok := desc.Layout.(*wgpuPipelineLayout)
	if !ok {
		return nil, fmt.Errorf("render pipeline %q: missing layout", desc.Label)
	}
	module, ok := desc.Module.(*wgpuShaderModule)
	if !ok {
		return nil, fmt.Errorf("render pipeline %q: missing shader module", desc.Label)
	}

	buffers := make([]wgpu.VertexBufferLayout, 0, len(desc.VertexBuffers))
	for _, vb := range desc.VertexBuffers {
		attrs := make([]wgpu.VertexAttribute, 0, len(vb.Attributes))
		for _, a := range vb.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         a.Format,
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			})
		}
		buffers = append(buffers, wgpu.VertexBufferLayout{
			ArrayStride: vb.Stride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}

	var fragment *wgpu.FragmentState
	if desc.FragmentEntry != "" {
		targets := make([]wgpu.ColorTargetState, 0, len(desc.ColorFormats))
		for _, f := range desc.ColorFormats {
			targets = append(targets, wgpu.ColorTargetState{
				Format:    f,
				WriteMask: wgpu.ColorWriteMaskAll,
			})
		}
		fragment = &wgpu.FragmentState{
			Module:     module.module,
			EntryPoint: desc.FragmentEntry,
			Targets:    targets,
		}
	}

	var depth *wgpu.DepthStencilState
	if desc.DepthFormat != wgpu.TextureFormatUndefined {
		depth = &wgpu.DepthStencilState{
			Format:              desc.DepthFormat,
			DepthWriteEnabled:   desc.DepthWrite,
			DepthCompare:        desc.DepthCompare,
			DepthBias:           desc.DepthBias,
			DepthBiasSlopeScale: desc.DepthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	p, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.layout,
		Vertex: wgpu.VertexState{
			Module:     module.module,
			EntryPoint: desc.VertexEntry,
			Buffers:    buffers,
		},
		Fragment: fragment,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  desc.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depth,
	})
	if err != nil {
		return nil, fmt.Errorf("render pipeline %q: %w", desc.Label, err)
	}
	return &wgpuRenderPipeline{label: desc.Label, pipeline: p}, nil
}

func (d *wgpuDevice) CreateComputePipeline(desc ComputePipelineDesc) (ComputePipeline, error) {
	layout, ok := desc.Layout.(*wgpuPipelineLayout)
	if !ok {
		return nil, fmt.Errorf("compute pipeline %q: missing layout", desc.Label)
	}
	module, ok := desc.Module.(*wgpuShaderModule)
	if !ok {
		return nil, fmt.Errorf("compute pipeline %q: missing shader module", desc.Label)
	}
	p, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module.module,
			EntryPoint: desc.Entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compute pipeline %q: %w", desc.Label, err)
	}
	return &wgpuComputePipeline{label: desc.Label, pipeline: p}, nil
}

func (d *wgpuDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) {
	d.queue.WriteBuffer(buf.(*wgpuBuffer).buf, offset, data)
}

func (d *wgpuDevice) WriteTexture(tex Texture, layer uint32, data []byte) {
	wt := tex.(*wgpuTexture)
	desc := wt.desc
	depth := uint32(1)
	if desc.Dimension == TextureDimension3D {
		depth = desc.DepthOrLayers
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  wt.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  desc.Width * BytesPerPixel(desc.Format),
			RowsPerImage: desc.Height,
		},
		&wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: depth,
		},
	)
}

func (d *wgpuDevice) CreateCommandList(label string) (CommandList, error) {
	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("command list %q: %w", label, err)
	}
	return &wgpuCommandList{label: label, device: d, encoder: encoder}, nil
}

func (d *wgpuDevice) Submit(lists ...CommandList) {
	buffers := make([]*wgpu.CommandBuffer, 0, len(lists))
	for _, l := range lists {
		wl := l.(*wgpuCommandList)
		if wl.buffer == nil {
			log.Panicf("[GPU] command list %q submitted before Close", wl.label)
		}
		buffers = append(buffers, wl.buffer)
	}
	d.queue.Submit(buffers...)
	for _, l := range lists {
		wl := l.(*wgpuCommandList)
		wl.buffer.Release()
		wl.buffer = nil
	}
}

func (d *wgpuDevice) Signal(value uint64) {
	d.queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
		d.fenceMu.Lock()
		defer d.fenceMu.Unlock()
		if value > d.completed {
			d.completed = value
		}
	})
}

func (d *wgpuDevice) CompletedValue() uint64 {
	d.fenceMu.Lock()
	defer d.fenceMu.Unlock()
	return d.completed
}

func (d *wgpuDevice) WaitForValue(value uint64) {
	for d.CompletedValue() < value {
		d.device.Poll(true, nil)
	}
}

func (d *wgpuDevice) Release() {
	if d.blit != nil {
		d.blit.release()
		d.blit = nil
	}
	if d.backBuffer != nil {
		d.backBuffer.Release()
		d.backBuffer = nil
	}
	if d.device != nil {
		d.queue.Release()
		d.device.Release()
		d.device = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (d *wgpuDevice) Format() wgpu.TextureFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surfaceFormat
}

func (d *wgpuDevice) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}
	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = pickSurfaceFormat(capabilities.Formats)

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

// pickSurfaceFormat returns the first supported format the blit fallback can target. When the
// surface offers none of them, BGRA8Unorm is configured and a warning logged.
func pickSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if BytesPerPixel(f) == 4 && !IsDepthFormat(f) && f != wgpu.TextureFormatR32Float {
			return f
		}
	}
	if len(formats) > 0 {
		log.Printf("[GPU] surface formats %v have no 8-bit RGBA variant, using %s", formats, wgpu.TextureFormatBGRA8Unorm)
	}
	return wgpu.TextureFormatBGRA8Unorm
}

var errNoBackBuffer = errors.New("surface returned no back buffer")

func (d *wgpuDevice) AcquireBackBuffer() (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("acquire back buffer: %w", err)
	}
	if surfaceTexture == nil {
		return nil, errNoBackBuffer
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("back buffer view: %w", err)
	}
	d.backBuffer = &wgpuTexture{
		label: "Back Buffer",
		desc: TextureDesc{
			Label:         "Back Buffer",
			Width:         surfaceTexture.GetWidth(),
			Height:        surfaceTexture.GetHeight(),
			DepthOrLayers: 1,
			MipLevels:     1,
			Format:        d.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
		},
		state: StatePresent,
		tex:   surfaceTexture,
		view:  view,
		owned: false,
	}
	return d.backBuffer, nil
}

func (d *wgpuDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.surface.Present()
	if d.backBuffer != nil {
		d.backBuffer.view.Release()
		d.backBuffer.view = nil
		d.backBuffer.tex.Release()
		d.backBuffer.tex = nil
		d.backBuffer = nil
	}
}
