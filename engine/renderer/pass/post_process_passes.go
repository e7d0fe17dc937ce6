package pass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// IndirectLightingPass adds diffuse irradiance from the SH irradiance grid to the deferred lighting.
// Surfaces outside the voxel volume fall back to a sky box ambient term.
//
// Inputs: GBuffers[0..1], InputBuffers[0] the deferred lighting, InputBuffers[1..3] the SH
// grids (red, green, blue), DepthBuffer the scene depth, Scene.SkyBox.
type IndirectLightingPass struct{ screenComputePass }

// NewIndirectLightingPass returns an uninitialized indirect lighting pass.
func NewIndirectLightingPass() *IndirectLightingPass {
	p := &IndirectLightingPass{}
	p.screenComputePass = screenComputePass{
		basePass:      basePass{name: NameIndirectLighting},
		defaultShader: "indirect_lighting",
		outputFormat:  wgpu.TextureFormatRGBA16Float,
		bind: func(cfg Config) map[string]gpu.Texture {
			if len(cfg.GBuffers) < 2 {
				fatalf(p.name, "descriptor table", fmt.Errorf("want 2 gbuffers, got %d", len(cfg.GBuffers)))
			}
			return map[string]gpu.Texture{
				"gbuffer0": cfg.GBuffers[0],
				"gbuffer1": cfg.GBuffers[1],
				"lighting": p.input(0, "lighting"),
				"sh_r":     p.input(1, "sh_r"),
				"sh_g":     p.input(2, "sh_g"),
				"sh_b":     p.input(3, "sh_b"),
				"depth":    cfg.DepthBuffer,
				"sky_box":  p.requireScene().SkyBox,
			}
		},
	}
	return p
}

// SkyBoxPass fills background pixels, where the lighting alpha is zero, with the sky box.
//
// Inputs: InputBuffers[0] the lit scene, Scene.SkyBox.
type SkyBoxPass struct{ screenComputePass }

// NewSkyBoxPass returns an uninitialized sky box pass.
func NewSkyBoxPass() *SkyBoxPass {
	p := &SkyBoxPass{}
	p.screenComputePass = screenComputePass{
		basePass:      basePass{name: NameSkyBox},
		defaultShader: "sky_box",
		outputFormat:  wgpu.TextureFormatRGBA16Float,
		bind: func(cfg Config) map[string]gpu.Texture {
			return map[string]gpu.Texture{
				"lighting": p.input(0, "lighting"),
				"sky_box":  p.requireScene().SkyBox,
			}
		},
	}
	return p
}

// VolumetricLightingPass marches the view ray through the shadow map and adds in-scattered sun
// light.
//
// Inputs: InputBuffers[0] the lit scene, InputBuffers[1] the shadow map, DepthBuffer the scene
// depth.
type VolumetricLightingPass struct{ screenComputePass }

// NewVolumetricLightingPass returns an uninitialized volumetric lighting pass.
func NewVolumetricLightingPass() *VolumetricLightingPass {
	p := &VolumetricLightingPass{}
	p.screenComputePass = screenComputePass{
		basePass:      basePass{name: NameVolumetricLighting},
		defaultShader: "volumetric_lighting",
		outputFormat:  wgpu.TextureFormatRGBA16Float,
		bind: func(cfg Config) map[string]gpu.Texture {
			return map[string]gpu.Texture{
				"lighting":   p.input(0, "lighting"),
				"shadow_map": p.input(1, "shadow map"),
				"depth":      cfg.DepthBuffer,
			}
		},
	}
	return p
}

// FXAAPass applies fast approximate anti-aliasing to the HDR image.
//
// Inputs: InputBuffers[0] the image.
type FXAAPass struct{ screenComputePass }

// NewFXAAPass returns an uninitialized FXAA pass.
func NewFXAAPass() *FXAAPass {
	p := &FXAAPass{}
	p.screenComputePass = screenComputePass{
		basePass:      basePass{name: NameFXAA},
		defaultShader: "fxaa",
		outputFormat:  wgpu.TextureFormatRGBA16Float,
		bind: func(cfg Config) map[string]gpu.Texture {
			return map[string]gpu.Texture{"input": p.input(0, "image")}
		},
	}
	return p
}

// ToneMappingPass maps the HDR image to LDR.
//
// Inputs: InputBuffers[0] the HDR image.
type ToneMappingPass struct{ screenComputePass }

// NewToneMappingPass returns an uninitialized tone mapping pass.
func NewToneMappingPass() *ToneMappingPass {
	p := &ToneMappingPass{}
	p.screenComputePass = screenComputePass{
		basePass:      basePass{name: NameToneMapping},
		defaultShader: "tone_mapping",
		outputFormat:  wgpu.TextureFormatRGBA8Unorm,
		bind: func(cfg Config) map[string]gpu.Texture {
			return map[string]gpu.Texture{"hdr": p.input(0, "hdr image")}
		},
	}
	return p
}

// ColorGradingPass looks every LDR pixel up in the scene's color grading table.
//
// Inputs: InputBuffers[0] the LDR image, Scene.ColorLUT.
type ColorGradingPass struct{ screenComputePass }

// NewColorGradingPass returns an uninitialized color grading pass.
func NewColorGradingPass() *ColorGradingPass {
	p := &ColorGradingPass{}
	p.screenComputePass = screenComputePass{
		basePass:      basePass{name: NameColorGrading},
		defaultShader: "color_grading",
		outputFormat:  wgpu.TextureFormatRGBA8Unorm,
		bind: func(cfg Config) map[string]gpu.Texture {
			return map[string]gpu.Texture{
				"ldr":       p.input(0, "ldr image"),
				"color_lut": p.requireScene().ColorLUT,
			}
		},
	}
	return p
}

var (
	_ RenderPass = &IndirectLightingPass{}
	_ RenderPass = &SkyBoxPass{}
	_ RenderPass = &VolumetricLightingPass{}
	_ RenderPass = &FXAAPass{}
	_ RenderPass = &ToneMappingPass{}
	_ RenderPass = &ColorGradingPass{}
)
