package bind_group_provider

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Static sampler names. Shaders declare samplers under these variable names.
const (
	SamplerLinearWrap    = "linear_wrap"
	SamplerAnisoWrap     = "aniso_wrap"
	SamplerLinearClamp   = "linear_clamp"
	SamplerPointClamp    = "point_clamp"
	SamplerShadowCompare = "shadow_compare"
)

// StaticSamplerDescs returns the descriptors of the samplers every pass may bind by name.
func StaticSamplerDescs() map[string]gpu.SamplerDesc {
	return map[string]gpu.SamplerDesc{
		SamplerLinearWrap:  {Label: SamplerLinearWrap, Filter: wgpu.FilterModeLinear, Address: wgpu.AddressModeRepeat},
		SamplerAnisoWrap:   {Label: SamplerAnisoWrap, Filter: wgpu.FilterModeLinear, Address: wgpu.AddressModeRepeat, MaxAnisotropy: 8},
		SamplerLinearClamp: {Label: SamplerLinearClamp, Filter: wgpu.FilterModeLinear, Address: wgpu.AddressModeClampToEdge},
		SamplerPointClamp:  {Label: SamplerPointClamp, Filter: wgpu.FilterModeNearest, Address: wgpu.AddressModeClampToEdge},
		SamplerShadowCompare: {
			Label:   SamplerShadowCompare,
			Filter:  wgpu.FilterModeLinear,
			Address: wgpu.AddressModeClampToEdge,
			Compare: wgpu.CompareFunctionLessEqual,
		},
	}
}

// StaticSamplers is the set of shared samplers, keyed by shader variable name.
type StaticSamplers map[string]gpu.Sampler

// NewStaticSamplers creates every static sampler. On failure the samplers created so far are released.
//
// Parameters:
//   - device: the device to create the samplers on
//
// Returns:
//   - StaticSamplers: the samplers keyed by name
//   - error: the first creation error
func NewStaticSamplers(device gpu.Device) (StaticSamplers, error) {
	descs := StaticSamplerDescs()
	names := make([]string, 0, len(descs))
	for name := range descs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(StaticSamplers, len(descs))
	for _, name := range names {
		s, err := device.CreateSampler(descs[name])
		if err != nil {
			out.Release()
			return nil, fmt.Errorf("static sampler %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// Release releases every sampler in the set.
func (s StaticSamplers) Release() {
	for name, sampler := range s {
		sampler.Release()
		delete(s, name)
	}
}
