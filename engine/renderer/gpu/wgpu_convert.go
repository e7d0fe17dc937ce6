package gpu

import "github.com/cogentcore/webgpu/wgpu"

func viewDimensionOrDefault(d wgpu.TextureViewDimension) wgpu.TextureViewDimension {
	if d == wgpu.TextureViewDimensionUndefined {
		return wgpu.TextureViewDimension2D
	}
	return d
}

// toWGPULayoutEntry converts a reflected binding into a wgpu layout entry, populating only
// the member that matches the binding's resource category.
func toWGPULayoutEntry(b BindingLayout) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: b.Visibility,
	}
	switch b.Type {
	case BindingUniformBuffer, BindingStorageBuffer, BindingReadOnlyStorageBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		if b.Type == BindingStorageBuffer {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		} else if b.Type == BindingReadOnlyStorageBuffer {
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
		entry.Buffer.HasDynamicOffset = b.HasDynamicOffset
		entry.Buffer.MinBindingSize = b.MinBindingSize
	case BindingSampledTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		if b.Unfilterable {
			entry.Texture.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
		}
		entry.Texture.ViewDimension = viewDimensionOrDefault(b.ViewDimension)
	case BindingDepthTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = viewDimensionOrDefault(b.ViewDimension)
	case BindingStorageTexture:
		entry.StorageTexture.Access = b.Access
		if b.Access == wgpu.StorageTextureAccessUndefined {
			entry.StorageTexture.Access = wgpu.StorageTextureAccessWriteOnly
		}
		entry.StorageTexture.Format = b.Format
		entry.StorageTexture.ViewDimension = viewDimensionOrDefault(b.ViewDimension)
	case BindingSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		if b.Unfilterable {
			entry.Sampler.Type = wgpu.SamplerBindingTypeNonFiltering
		}
	case BindingComparisonSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	}
	return entry
}
