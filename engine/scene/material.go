package scene

import (
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
)

// Material holds the shading constants of one object. Each frame resource carries its own copy
// of the material constant buffer, so a change has to be uploaded NumFrameResources times;
// NumFramesDirty counts the uploads still owed.
type Material struct {
	Name string

	// MatCBIndex is the element of the material constant buffer holding this material.
	MatCBIndex int

	// DiffuseSrvHeapIndex is the index of the material's first texture in the scene texture
	// list; the normal-roughness texture follows it.
	DiffuseSrvHeapIndex int

	// DiffuseAlbedo multiplies the diffuse-opacity texture.
	DiffuseAlbedo [4]float32

	// Metallic is written to the gbuffer as-is.
	Metallic float32

	// Roughness multiplies the roughness stored in the normal map's alpha.
	Roughness float32

	NumFramesDirty int
}

// NewMaterial creates a white, non-metallic material that is dirty for every frame resource.
func NewMaterial(name string, cbIndex, srvIndex int) *Material {
	return &Material{
		Name:                name,
		MatCBIndex:          cbIndex,
		DiffuseSrvHeapIndex: srvIndex,
		DiffuseAlbedo:       [4]float32{1, 1, 1, 1},
		Roughness:           1,
		NumFramesDirty:      frame_resource.NumFrameResources,
	}
}

// SetDiffuseAlbedo sets the albedo multiplier and marks the material dirty.
func (m *Material) SetDiffuseAlbedo(albedo [4]float32) {
	m.DiffuseAlbedo = albedo
	m.NumFramesDirty = frame_resource.NumFrameResources
}

// SetMetallic sets the metallic and roughness factors and marks the material dirty.
func (m *Material) SetMetallic(metallic, roughness float32) {
	m.Metallic = metallic
	m.Roughness = roughness
	m.NumFramesDirty = frame_resource.NumFrameResources
}

// MarkFrameUpdated records that one frame resource received the current constants.
func (m *Material) MarkFrameUpdated() {
	if m.NumFramesDirty > 0 {
		m.NumFramesDirty--
	}
}

// Constants returns the GPU constant block for this material.
func (m *Material) Constants() frame_resource.MaterialConstants {
	return frame_resource.MaterialConstants{
		DiffuseAlbedo: m.DiffuseAlbedo,
		Metallic:      [4]float32{m.Metallic, m.Roughness, 0, 0},
	}
}
