// Package gputest provides an in-memory gpu.Device that records every call so render code
// can be exercised without a graphics adapter.
package gputest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Texture is a recorded texture. Released counts Release calls.
type Texture struct {
	desc     gpu.TextureDesc
	state    gpu.ResourceState
	Released int
	// Writes holds the layer of every WriteTexture call.
	Writes []uint32
}

func (t *Texture) Label() string                    { return t.desc.Label }
func (t *Texture) Desc() gpu.TextureDesc            { return t.desc }
func (t *Texture) State() gpu.ResourceState         { return t.state }
func (t *Texture) SetState(state gpu.ResourceState) { t.state = state }
func (t *Texture) Release()                         { t.Released++ }

// Buffer is a recorded buffer backed by a byte slice mirroring its contents.
type Buffer struct {
	desc     gpu.BufferDesc
	Data     []byte
	Released int
}

func (b *Buffer) Label() string { return b.desc.Label }
func (b *Buffer) Size() uint64  { return b.desc.Size }
func (b *Buffer) Release()      { b.Released++ }

// Desc returns the descriptor the buffer was created with.
func (b *Buffer) Desc() gpu.BufferDesc { return b.desc }

// Object is any other recorded GPU object.
type Object struct {
	Kind     string
	label    string
	Released int

	// BindGroupLayout entries, pipeline descriptors and bind group entries are kept
	// for assertions.
	Bindings []gpu.BindingLayout
	Entries  []gpu.BindGroupEntry
	Groups   []gpu.BindGroupLayout
	Render   *gpu.RenderPipelineDesc
	Compute  *gpu.ComputePipelineDesc
	Source   string
}

func (o *Object) Label() string { return o.label }
func (o *Object) Release()      { o.Released++ }

// layoutObject satisfies gpu.BindGroupLayout.
type layoutObject struct{ *Object }

func (l layoutObject) Entries() []gpu.BindingLayout { return l.Bindings }

// BufferWrite is one recorded WriteBuffer call.
type BufferWrite struct {
	Buffer *Buffer
	Offset uint64
	Data   []byte
}

// Device is a recording gpu.Device.
//
// Fences complete as soon as they are signaled unless HoldFences was called; held fences
// complete through Complete, or through WaitForValue, which records the wait and then
// completes the awaited value as the GPU eventually would.
type Device struct {
	mu *sync.Mutex

	Textures     []*Texture
	Buffers      []*Buffer
	Objects      []*Object
	BufferWrites []BufferWrite
	CommandLists []*CommandList
	Submitted    []*CommandList
	Signals      []uint64
	Waits        []uint64
	Released     int

	// FailOn makes any Create call whose label contains the substring fail.
	FailOn string

	hold      bool
	completed uint64
}

var _ gpu.Device = &Device{}

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{mu: &sync.Mutex{}}
}

// HoldFences stops signaled values from completing automatically.
func (d *Device) HoldFences() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hold = true
}

// Complete marks every fence value up to and including value as completed.
func (d *Device) Complete(value uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if value > d.completed {
		d.completed = value
	}
}

func (d *Device) fail(kind, label string) error {
	if d.FailOn != "" && strings.Contains(label, d.FailOn) {
		return fmt.Errorf("gputest: %s %q failed", kind, label)
	}
	return nil
}

func (d *Device) object(kind, label string) *Object {
	o := &Object{Kind: kind, label: label}
	d.Objects = append(d.Objects, o)
	return o
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if err := d.fail("texture", desc.Label); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("gputest: texture %q has zero extent", desc.Label)
	}
	if desc.DepthOrLayers == 0 {
		desc.DepthOrLayers = 1
	}
	if desc.Dimension == gpu.TextureDimensionCube {
		desc.DepthOrLayers = 6
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	t := &Texture{desc: desc, state: desc.InitialState}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) CreateBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	if err := d.fail("buffer", desc.Label); err != nil {
		return nil, err
	}
	b := &Buffer{desc: desc, Data: make([]byte, desc.Size)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateSampler(desc gpu.SamplerDesc) (gpu.Sampler, error) {
	if err := d.fail("sampler", desc.Label); err != nil {
		return nil, err
	}
	return d.object("sampler", desc.Label), nil
}

func (d *Device) CreateShaderModule(label, source string) (gpu.ShaderModule, error) {
	if err := d.fail("shader module", label); err != nil {
		return nil, err
	}
	o := d.object("shader module", label)
	o.Source = source
	return o, nil
}

func (d *Device) CreateBindGroupLayout(label string, entries []gpu.BindingLayout) (gpu.BindGroupLayout, error) {
	if err := d.fail("bind group layout", label); err != nil {
		return nil, err
	}
	o := d.object("bind group layout", label)
	o.Bindings = entries
	return layoutObject{o}, nil
}

func (d *Device) CreatePipelineLayout(label string, groups []gpu.BindGroupLayout) (gpu.PipelineLayout, error) {
	if err := d.fail("pipeline layout", label); err != nil {
		return nil, err
	}
	o := d.object("pipeline layout", label)
	o.Groups = groups
	return o, nil
}

func (d *Device) CreateBindGroup(label string, layout gpu.BindGroupLayout, entries []gpu.BindGroupEntry) (gpu.BindGroup, error) {
	if err := d.fail("bind group", label); err != nil {
		return nil, err
	}
	if len(entries) != len(layout.Entries()) {
		return nil, fmt.Errorf("gputest: bind group %q has %d entries, layout %q wants %d",
			label, len(entries), layout.Label(), len(layout.Entries()))
	}
	o := d.object("bind group", label)
	o.Entries = entries
	return o, nil
}

func (d *Device) CreateRenderPipeline(desc gpu.RenderPipelineDesc) (gpu.RenderPipeline, error) {
	if err := d.fail("render pipeline", desc.Label); err != nil {
		return nil, err
	}
	o := d.object("render pipeline", desc.Label)
	o.Render = &desc
	return o, nil
}

func (d *Device) CreateComputePipeline(desc gpu.ComputePipelineDesc) (gpu.ComputePipeline, error) {
	if err := d.fail("compute pipeline", desc.Label); err != nil {
		return nil, err
	}
	o := d.object("compute pipeline", desc.Label)
	o.Compute = &desc
	return o, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) {
	b := buf.(*Buffer)
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		panic(fmt.Sprintf("gputest: write of %d bytes at %d overflows buffer %q (%d bytes)", len(data), offset, b.Label(), len(b.Data)))
	}
	copy(b.Data[offset:], data)
	d.BufferWrites = append(d.BufferWrites, BufferWrite{Buffer: b, Offset: offset, Data: append([]byte(nil), data...)})
}

func (d *Device) WriteTexture(tex gpu.Texture, layer uint32, data []byte) {
	t := tex.(*Texture)
	t.Writes = append(t.Writes, layer)
}

func (d *Device) CreateCommandList(label string) (gpu.CommandList, error) {
	if err := d.fail("command list", label); err != nil {
		return nil, err
	}
	c := &CommandList{label: label}
	d.CommandLists = append(d.CommandLists, c)
	return c, nil
}

func (d *Device) Submit(lists ...gpu.CommandList) {
	for _, l := range lists {
		c := l.(*CommandList)
		if !c.Closed {
			panic(fmt.Sprintf("gputest: command list %q submitted before Close", c.label))
		}
		d.Submitted = append(d.Submitted, c)
	}
}

func (d *Device) Signal(value uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Signals = append(d.Signals, value)
	if !d.hold && value > d.completed {
		d.completed = value
	}
}

func (d *Device) CompletedValue() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

func (d *Device) WaitForValue(value uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Waits = append(d.Waits, value)
	if value > d.completed {
		d.completed = value
	}
}

func (d *Device) Release() {
	d.Released++
}

// TextureByLabel returns the first texture created with label, or nil.
func (d *Device) TextureByLabel(label string) *Texture {
	for _, t := range d.Textures {
		if t.Label() == label {
			return t
		}
	}
	return nil
}

// ObjectsOfKind returns every recorded object of the given kind in creation order.
func (d *Device) ObjectsOfKind(kind string) []*Object {
	var out []*Object
	for _, o := range d.Objects {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

// SwapChain is a recording gpu.SwapChain with a single back buffer.
type SwapChain struct {
	BackBuffer *Texture
	Presents   int
	Resizes    [][2]int

	// AcquireErr, when set, is returned by AcquireBackBuffer.
	AcquireErr error
}

var _ gpu.SwapChain = &SwapChain{}

// NewSwapChain returns a swap chain whose back buffer has the given size and format.
func NewSwapChain(width, height uint32, format wgpu.TextureFormat) *SwapChain {
	return &SwapChain{BackBuffer: &Texture{
		desc: gpu.TextureDesc{
			Label:         "Back Buffer",
			Width:         width,
			Height:        height,
			DepthOrLayers: 1,
			MipLevels:     1,
			Format:        format,
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
		},
		state: gpu.StatePresent,
	}}
}

func (s *SwapChain) Format() wgpu.TextureFormat { return s.BackBuffer.desc.Format }

func (s *SwapChain) AcquireBackBuffer() (gpu.Texture, error) {
	if s.AcquireErr != nil {
		return nil, s.AcquireErr
	}
	return s.BackBuffer, nil
}

func (s *SwapChain) Present() { s.Presents++ }

func (s *SwapChain) Resize(width, height int) {
	s.Resizes = append(s.Resizes, [2]int{width, height})
	s.BackBuffer.desc.Width = uint32(width)
	s.BackBuffer.desc.Height = uint32(height)
}
