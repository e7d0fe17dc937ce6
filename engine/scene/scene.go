package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/loader"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// ColorLUTWidth and ColorLUTHeight are the extent of a color grading table: 16 slices of
// 16x16 laid out horizontally.
const (
	ColorLUTWidth  = 256
	ColorLUTHeight = 16
)

// Scene is a loaded scene: its objects, their materials and textures, the merged geometry
// they draw from, and the environment textures the lighting passes sample.
type Scene struct {
	Name string

	CameraPosition [3]float32
	// CameraRotation is the camera quaternion (x, y, z, w) with x, y and z negated relative to
	// the scene file.
	CameraRotation [4]float32

	LightDirection [3]float32
	LightStrength  [3]float32

	Objects   []*RenderObject
	Materials []*Material

	// Textures holds two entries per object: diffuse-opacity then normal-roughness. Objects
	// sharing a texture name share the texture.
	Textures []gpu.Texture

	Geometry *MeshGeometry

	// SkyBox is the environment cube map.
	SkyBox gpu.Texture
	// ColorLUT is the 256x16 color grading table.
	ColorLUT gpu.Texture

	quad  *RenderObject
	owned []gpu.Texture
}

// PostProcessQuad returns the object fullscreen passes draw.
func (s *Scene) PostProcessQuad() *RenderObject {
	return s.quad
}

// VisibleObjects returns the objects whose bounding spheres intersect frustum.
func (s *Scene) VisibleObjects(frustum common.Frustum) []*RenderObject {
	out := make([]*RenderObject, 0, len(s.Objects))
	for _, o := range s.Objects {
		if c, r := o.WorldBounds(); frustum.ContainsSphere(c, r) {
			out = append(out, o)
		}
	}
	return out
}

// Release releases the geometry and every texture the scene created.
func (s *Scene) Release() {
	for _, tex := range s.owned {
		tex.Release()
	}
	s.owned = nil
	s.Textures = nil
	s.SkyBox, s.ColorLUT = nil, nil
	if s.Geometry != nil {
		s.Geometry.Release()
		s.Geometry = nil
	}
}

// BuildScene uploads decoded scene assets: one merged geometry holding every distinct mesh plus
// the post-processing quad, two textures and one material per object, the sky box cube, and the
// color grading table (a neutral one when the assets carry none).
//
// Parameters:
//   - device: the device to create GPU resources on
//   - assets: the decoded assets
//
// Returns:
//   - *Scene: the scene
//   - error: error if an asset is missing from assets or resource creation fails
func BuildScene(device gpu.Device, assets *loader.SceneAssets) (*Scene, error) {
	desc := assets.Desc
	s := &Scene{
		Name:           desc.Name,
		CameraPosition: desc.CameraPosition,
		CameraRotation: [4]float32{-desc.CameraRotation[0], -desc.CameraRotation[1], -desc.CameraRotation[2], desc.CameraRotation[3]},
		LightDirection: desc.LightDirection,
		LightStrength:  desc.LightStrength,
	}

	gb := NewMeshGeometryBuilder(desc.Name)
	for _, o := range desc.Objects {
		m, ok := assets.Meshes[o.Mesh]
		if !ok {
			return nil, fmt.Errorf("scene %q: mesh %q was not loaded", desc.Name, o.Mesh)
		}
		if err := gb.Add(o.Mesh, m); err != nil {
			return nil, fmt.Errorf("scene %q: %w", desc.Name, err)
		}
	}
	if err := gb.Add(PostProcessQuadKey, PostProcessQuadMesh()); err != nil {
		return nil, err
	}
	var err error
	if s.Geometry, err = gb.Build(device); err != nil {
		return nil, err
	}

	byName := make(map[string]gpu.Texture)
	texture := func(name string, format wgpu.TextureFormat) (gpu.Texture, error) {
		if tex, ok := byName[name]; ok {
			return tex, nil
		}
		data, ok := assets.Textures[name]
		if !ok {
			return nil, fmt.Errorf("scene %q: texture %q was not loaded", desc.Name, name)
		}
		tex, err := s.upload(device, name, format, gpu.TextureDimension2D, data)
		if err != nil {
			return nil, err
		}
		byName[name] = tex
		return tex, nil
	}

	for i, o := range desc.Objects {
		diffuse, err := texture(o.DiffuseOpacity, wgpu.TextureFormatRGBA8UnormSrgb)
		if err != nil {
			s.Release()
			return nil, err
		}
		normal, err := texture(o.NormalRoughness, wgpu.TextureFormatRGBA8Unorm)
		if err != nil {
			s.Release()
			return nil, err
		}
		s.Textures = append(s.Textures, diffuse, normal)

		mat := NewMaterial(fmt.Sprintf("%s %d", o.Mesh, i), i, 2*i)
		s.Materials = append(s.Materials, mat)

		obj := NewRenderObject(i, s.Geometry, o.Mesh, mat)
		obj.SetTransform(o.Position, o.Rotation, o.Scale)
		s.Objects = append(s.Objects, obj)
	}
	s.quad = NewRenderObject(0, s.Geometry, PostProcessQuadKey, nil)

	if s.SkyBox, err = s.upload(device, "Sky Box", wgpu.TextureFormatRGBA8UnormSrgb, gpu.TextureDimensionCube, assets.SkyBox[:]...); err != nil {
		s.Release()
		return nil, err
	}
	lut := NeutralColorLUT()
	if assets.ColorLUT != nil {
		lut = *assets.ColorLUT
		if lut.Width != ColorLUTWidth || lut.Height != ColorLUTHeight {
			s.Release()
			return nil, fmt.Errorf("scene %q: color grading table is %dx%d, want %dx%d", desc.Name, lut.Width, lut.Height, ColorLUTWidth, ColorLUTHeight)
		}
	}
	if s.ColorLUT, err = s.upload(device, "Color LUT", wgpu.TextureFormatRGBA8Unorm, gpu.TextureDimension2D, lut); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

// upload creates a sampled texture from one image per layer and records it for Release.
func (s *Scene) upload(device gpu.Device, label string, format wgpu.TextureFormat, dim gpu.TextureDimension, layers ...common.TextureStagingData) (gpu.Texture, error) {
	tex, err := device.CreateTexture(gpu.TextureDesc{
		Label:         label,
		Width:         layers[0].Width,
		Height:        layers[0].Height,
		DepthOrLayers: uint32(len(layers)),
		MipLevels:     1,
		Format:        format,
		Dimension:     dim,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		InitialState:  gpu.StateGenericRead,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", label, err)
	}
	s.owned = append(s.owned, tex)
	for i, layer := range layers {
		device.WriteTexture(tex, uint32(i), layer.Pixels)
	}
	return tex, nil
}

// NeutralColorLUT returns the identity color grading table: texel (x, y) of slice x/16 holds
// red x%16, green y and blue x/16, each scaled from [0, 15] to [0, 255].
func NeutralColorLUT() common.TextureStagingData {
	px := make([]byte, ColorLUTWidth*ColorLUTHeight*4)
	for y := range ColorLUTHeight {
		for x := range ColorLUTWidth {
			i := (y*ColorLUTWidth + x) * 4
			px[i] = byte((x % 16) * 255 / 15)
			px[i+1] = byte(y * 255 / 15)
			px[i+2] = byte((x / 16) * 255 / 15)
			px[i+3] = 255
		}
	}
	return common.TextureStagingData{Pixels: px, Width: ColorLUTWidth, Height: ColorLUTHeight}
}
