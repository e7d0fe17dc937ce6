// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// DecodeImage decodes a PNG, JPEG, BMP, TIFF or WebP image into tightly packed RGBA8 pixels.
//
// Parameters:
//   - r: the encoded image
//
// Returns:
//   - TextureStagingData: the decoded pixels
//   - string: the detected format name
//   - error: error if decoding fails
func DecodeImage(r io.Reader) (TextureStagingData, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return TextureStagingData{}, "", fmt.Errorf("decode image: %w", err)
	}
	return ToRGBA(img), format, nil
}

// ToRGBA converts any image to tightly packed RGBA8 pixels with its origin at (0, 0).
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - TextureStagingData: the converted pixels
func ToRGBA(img image.Image) TextureStagingData {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return TextureStagingData{Pixels: dst.Pix, Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy())}
}

// Resize scales RGBA8 pixels to the given extent with Catmull-Rom filtering. Cube map faces
// of different sizes are brought to a common size this way.
//
// Parameters:
//   - src: the source pixels
//   - width, height: the target extent
//
// Returns:
//   - TextureStagingData: the resized pixels, or src when the extent already matches
func Resize(src TextureStagingData, width, height uint32) TextureStagingData {
	if src.Width == width && src.Height == height {
		return src
	}
	in := &image.RGBA{Pix: src.Pixels, Stride: int(src.Width) * 4, Rect: image.Rect(0, 0, int(src.Width), int(src.Height))}
	out := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.CatmullRom.Scale(out, out.Bounds(), in, in.Bounds(), draw.Src, nil)
	return TextureStagingData{Pixels: out.Pix, Width: width, Height: height}
}

// Vertex is the interleaved mesh vertex consumed by every geometry pass: position, normal,
// tangent and texture coordinate, 44 bytes with no padding.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Tangent  [3]float32
	TexCoord [2]float32
}

// SubmeshData is an index range of a MeshData.
type SubmeshData struct {
	Name       string
	IndexCount uint32
	StartIndex uint32
	BaseVertex int32
}

// MeshData holds CPU-side mesh data pending GPU upload. Submeshes index into Indices, with
// indices relative to each submesh's BaseVertex.
type MeshData struct {
	Name      string
	Vertices  []Vertex
	Indices   []uint32
	Submeshes []SubmeshData
}

// Bounds returns the center and radius of a sphere enclosing the vertices of the index range
// [start, start+count), each offset by baseVertex.
//
// Parameters:
//   - start: the first index
//   - count: the number of indices
//   - baseVertex: the value added to each index
//
// Returns:
//   - [3]float32: the sphere center (the center of the axis-aligned bounds)
//   - float32: the sphere radius
func (m *MeshData) Bounds(start, count uint32, baseVertex int32) ([3]float32, float32) {
	if count == 0 {
		return [3]float32{}, 0
	}
	lo := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, idx := range m.Indices[start : start+count] {
		p := m.Vertices[int(idx)+int(baseVertex)].Position
		for i := range 3 {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}
	center := Scale3(Add3(lo, hi), 0.5)
	var radius float32
	for _, idx := range m.Indices[start : start+count] {
		d := Sub3(m.Vertices[int(idx)+int(baseVertex)].Position, center)
		radius = max(radius, Dot3(d, d))
	}
	return center, float32(math.Sqrt(float64(radius)))
}

// Validate checks that every submesh lies inside the index list and every index addresses a vertex.
//
// Returns:
//   - error: a description of the first out-of-range submesh or index
func (m *MeshData) Validate() error {
	for _, sm := range m.Submeshes {
		if uint64(sm.StartIndex)+uint64(sm.IndexCount) > uint64(len(m.Indices)) {
			return fmt.Errorf("mesh %q: submesh %q indices [%d, %d) exceed %d", m.Name, sm.Name, sm.StartIndex, sm.StartIndex+sm.IndexCount, len(m.Indices))
		}
		for _, idx := range m.Indices[sm.StartIndex : sm.StartIndex+sm.IndexCount] {
			if v := int64(idx) + int64(sm.BaseVertex); v < 0 || v >= int64(len(m.Vertices)) {
				return fmt.Errorf("mesh %q: submesh %q index %d addresses vertex %d of %d", m.Name, sm.Name, idx, v, len(m.Vertices))
			}
		}
	}
	return nil
}
