package frame_resource

import (
	_ "embed"
	"unsafe"
)

// GPUPassConstantsSource is the canonical WGSL definition of the PassConstants struct.
// Matches PassConstants layout exactly (672 bytes).
//
//go:embed assets/pass_constants.wgsl
var GPUPassConstantsSource string

// PassConstants holds the per-frame values shared by every pass. Matrices are column-major.
type PassConstants struct {
	View         [16]float32 // offset   0
	InvView      [16]float32 // offset  64
	Proj         [16]float32 // offset 128
	InvProj      [16]float32 // offset 192
	ViewProj     [16]float32 // offset 256
	InvViewProj  [16]float32 // offset 320
	SkyBoxMatrix [16]float32 // offset 384: camera rotation applied to cube map lookups
	// ShadowViewProj maps world space to the light's clip space.
	ShadowViewProj [16]float32 // offset 448
	// ShadowTransform maps world space to shadow-map texture space.
	ShadowTransform     [16]float32 // offset 512
	EyePosW             [3]float32  // offset 576
	LUTContribution     float32     // offset 588
	RenderTargetSize    [2]float32  // offset 592
	InvRenderTargetSize [2]float32  // offset 600
	NearZ               float32     // offset 608
	FarZ                float32     // offset 612
	TotalTime           float32     // offset 616
	DeltaTime           float32     // offset 620
	SunLightStrength    [4]float32  // offset 624: rgb strength, w intensity
	SunLightDirection   [4]float32  // offset 640
	// VoxelParams is (worldVolumeBoundary, coneIterations, coneStep, unused).
	VoxelParams [4]float32 // offset 656
}

// Size returns the size of the PassConstants struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (672)
func (p *PassConstants) Size() int {
	return int(unsafe.Sizeof(*p))
}

// GPUObjectConstantsSource is the canonical WGSL definition of the ObjectConstants struct.
//
//go:embed assets/object_constants.wgsl
var GPUObjectConstantsSource string

// ObjectConstants holds per-object transforms.
type ObjectConstants struct {
	World        [16]float32
	TexTransform [16]float32
}

// Size returns the size of the ObjectConstants struct in bytes (128).
func (o *ObjectConstants) Size() int {
	return int(unsafe.Sizeof(*o))
}

// GPUMaterialConstantsSource is the canonical WGSL definition of the MaterialConstants struct.
//
//go:embed assets/material_constants.wgsl
var GPUMaterialConstantsSource string

// MaterialConstants holds per-material surface parameters.
type MaterialConstants struct {
	DiffuseAlbedo [4]float32
	// Metallic is (metallic, roughness, unused, unused).
	Metallic [4]float32
}

// Size returns the size of the MaterialConstants struct in bytes (32).
func (m *MaterialConstants) Size() int {
	return int(unsafe.Sizeof(*m))
}
