package bind_group_provider

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrUnknownBinding is returned when a layout binding names a resource the provider does not hold.
	ErrUnknownBinding = errors.New("no resource registered for binding")

	// ErrIncompatibleBinding is returned when a registered resource cannot be bound at a layout entry.
	ErrIncompatibleBinding = errors.New("resource does not match binding")
)

// bufferRange is a buffer registered under a shader variable name.
type bufferRange struct {
	buffer gpu.Buffer
	offset uint64
	size   uint64
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following maps hold borrowed resources keyed by the shader variable they bind to.
	// The provider never releases them.

	textures map[string]gpu.Texture
	samplers map[string]gpu.Sampler
	buffers  map[string]bufferRange

	// bindGroup is the bind group created by the last Build, or nil.
	bindGroup gpu.BindGroup
}

// BindGroupProvider is a descriptor table: it collects GPU resources under the names of the
// shader variables they bind to and builds bind groups against reflected layouts. Each
// layout entry is resolved by its Name, so a pass registers "gbuffer0" once and any shader
// that declares a gbuffer0 binding receives it regardless of binding index.
//
// Usage pattern:
//  1. A pass creates a provider and registers its inputs, outputs and the static samplers
//  2. The pass calls Build with the pipeline's generated group layout
//  3. The pass binds BindGroup() while recording
//  4. Release frees the bind group; registered resources belong to their owners
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// SetTexture registers a texture under a shader variable name, replacing any previous one.
	//
	// Parameters:
	//   - name: the shader variable name
	//   - tex: the texture to bind
	SetTexture(name string, tex gpu.Texture)

	// SetSampler registers a sampler under a shader variable name.
	//
	// Parameters:
	//   - name: the shader variable name
	//   - s: the sampler to bind
	SetSampler(name string, s gpu.Sampler)

	// SetBuffer registers a buffer range under a shader variable name.
	//
	// Parameters:
	//   - name: the shader variable name
	//   - buf: the buffer to bind
	//   - offset: the byte offset of the bound range
	//   - size: the size of the bound range, 0 for the remainder of the buffer
	SetBuffer(name string, buf gpu.Buffer, offset, size uint64)

	// Texture returns the texture registered under name, or nil.
	Texture(name string) gpu.Texture

	// Sampler returns the sampler registered under name, or nil.
	Sampler(name string) gpu.Sampler

	// Build creates a bind group against layout, resolving every entry by name. A previously
	// built bind group is released first.
	//
	// Parameters:
	//   - device: the device to create the bind group on
	//   - layout: the layout to build against
	//
	// Returns:
	//   - gpu.BindGroup: the created bind group
	//   - error: ErrUnknownBinding or ErrIncompatibleBinding for unresolvable entries, or the device error
	Build(device gpu.Device, layout gpu.BindGroupLayout) (gpu.BindGroup, error)

	// BindGroup returns the bind group created by the last Build, or nil.
	//
	// Returns:
	//   - gpu.BindGroup: the bind group or nil
	BindGroup() gpu.BindGroup

	// Release releases the bind group held by this provider. Registered resources are not released.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the given label and options.
//
// Parameters:
//   - label: the debug label, also used for created bind groups
//   - options: functional options registering resources
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    label,
		textures: make(map[string]gpu.Texture),
		samplers: make(map[string]gpu.Sampler),
		buffers:  make(map[string]bufferRange),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) SetTexture(name string, tex gpu.Texture) {
	p.textures[name] = tex
}

func (p *bindGroupProvider) SetSampler(name string, s gpu.Sampler) {
	p.samplers[name] = s
}

func (p *bindGroupProvider) SetBuffer(name string, buf gpu.Buffer, offset, size uint64) {
	p.buffers[name] = bufferRange{buffer: buf, offset: offset, size: size}
}

func (p *bindGroupProvider) Texture(name string) gpu.Texture {
	return p.textures[name]
}

func (p *bindGroupProvider) Sampler(name string) gpu.Sampler {
	return p.samplers[name]
}

func (p *bindGroupProvider) BindGroup() gpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Build(device gpu.Device, layout gpu.BindGroupLayout) (gpu.BindGroup, error) {
	entries, err := p.resolve(layout.Entries())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.label, err)
	}
	bg, err := device.CreateBindGroup(p.label, layout, entries)
	if err != nil {
		return nil, err
	}
	p.Release()
	p.bindGroup = bg
	return bg, nil
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

// resolve maps each layout entry to a registered resource.
func (p *bindGroupProvider) resolve(layout []gpu.BindingLayout) ([]gpu.BindGroupEntry, error) {
	entries := make([]gpu.BindGroupEntry, 0, len(layout))
	for _, l := range layout {
		e := gpu.BindGroupEntry{Binding: l.Binding}
		switch {
		case l.Type.IsTexture():
			tex, ok := p.textures[l.Name]
			if !ok || tex == nil {
				return nil, fmt.Errorf("%w: texture %q (binding %d)", ErrUnknownBinding, l.Name, l.Binding)
			}
			if err := checkTexture(l, tex.Desc()); err != nil {
				return nil, err
			}
			e.Texture = tex
		case l.Type.IsSampler():
			s, ok := p.samplers[l.Name]
			if !ok || s == nil {
				return nil, fmt.Errorf("%w: sampler %q (binding %d)", ErrUnknownBinding, l.Name, l.Binding)
			}
			e.Sampler = s
		case l.Type.IsBuffer():
			b, ok := p.buffers[l.Name]
			if !ok || b.buffer == nil {
				return nil, fmt.Errorf("%w: buffer %q (binding %d)", ErrUnknownBinding, l.Name, l.Binding)
			}
			e.Buffer, e.Offset, e.Size = b.buffer, b.offset, b.size
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// checkTexture verifies that a texture's dimension, usage and format fit a layout entry.
func checkTexture(l gpu.BindingLayout, desc gpu.TextureDesc) error {
	var wantDim gpu.TextureDimension
	switch l.ViewDimension {
	case wgpu.TextureViewDimension3D:
		wantDim = gpu.TextureDimension3D
	case wgpu.TextureViewDimensionCube:
		wantDim = gpu.TextureDimensionCube
	default:
		wantDim = gpu.TextureDimension2D
	}
	if desc.Dimension != wantDim {
		return fmt.Errorf("%w: %q bound to %q has the wrong dimension", ErrIncompatibleBinding, desc.Label, l.Name)
	}

	switch l.Type {
	case gpu.BindingStorageTexture:
		if !gpu.HasUsage(desc.Usage, wgpu.TextureUsageStorageBinding) {
			return fmt.Errorf("%w: %q bound to storage %q lacks storage usage", ErrIncompatibleBinding, desc.Label, l.Name)
		}
		if !gpu.CopyCompatible(desc.Format, l.Format) || gpu.IsSrgb(desc.Format) {
			return fmt.Errorf("%w: %q is %s, storage %q wants %s", ErrIncompatibleBinding, desc.Label, desc.Format, l.Name, l.Format)
		}
	case gpu.BindingDepthTexture:
		if !gpu.IsDepthFormat(desc.Format) || !gpu.HasUsage(desc.Usage, wgpu.TextureUsageTextureBinding) {
			return fmt.Errorf("%w: %q bound to depth %q is not a sampled depth texture", ErrIncompatibleBinding, desc.Label, l.Name)
		}
	default:
		if !gpu.HasUsage(desc.Usage, wgpu.TextureUsageTextureBinding) || gpu.IsDepthFormat(desc.Format) {
			return fmt.Errorf("%w: %q bound to %q is not a sampled color texture", ErrIncompatibleBinding, desc.Label, l.Name)
		}
	}
	return nil
}
