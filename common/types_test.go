package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"golang.org/x/image/bmp"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(2, 1, color.NRGBA{B: 255, A: 255})
	return img
}

func TestDecodeImage(t *testing.T) {
	tests := []struct {
		format string
		encode func(*bytes.Buffer, image.Image) error
	}{
		{"png", func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) }},
		{"bmp", func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) }},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, testImage()); err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, format, err := DecodeImage(&buf)
			if err != nil {
				t.Fatalf("DecodeImage: %v", err)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
			if got.Width != 3 || got.Height != 2 || len(got.Pixels) != 3*2*4 {
				t.Fatalf("decoded %dx%d with %d bytes", got.Width, got.Height, len(got.Pixels))
			}
			if got.Pixels[0] != 255 || got.Pixels[3] != 255 {
				t.Errorf("first texel = %v, want opaque red", got.Pixels[:4])
			}
			last := got.Pixels[len(got.Pixels)-4:]
			if last[2] != 255 || last[0] != 0 {
				t.Errorf("last texel = %v, want opaque blue", last)
			}
		})
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeImage(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("garbage decoded without error")
	}
}

func TestResize(t *testing.T) {
	src := ToRGBA(testImage())
	if same := Resize(src, 3, 2); &same.Pixels[0] != &src.Pixels[0] {
		t.Error("Resize copied an image that already had the target extent")
	}
	out := Resize(src, 6, 4)
	if out.Width != 6 || out.Height != 4 || len(out.Pixels) != 6*4*4 {
		t.Errorf("Resize produced %dx%d with %d bytes", out.Width, out.Height, len(out.Pixels))
	}
}

func TestMeshDataBoundsAndValidate(t *testing.T) {
	m := &MeshData{
		Name: "quad",
		Vertices: []Vertex{
			{Position: [3]float32{9, 9, 9}},
			{Position: [3]float32{-1, -1, 0}},
			{Position: [3]float32{1, -1, 0}},
			{Position: [3]float32{1, 1, 0}},
			{Position: [3]float32{-1, 1, 0}},
		},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Submeshes: []SubmeshData{{Name: "quad", IndexCount: 6, BaseVertex: 1}},
	}
	center, radius := m.Bounds(0, 6, 1)
	if center != [3]float32{0, 0, 0} || !near(radius, float32(math.Sqrt2)) {
		t.Errorf("Bounds = %v, %v", center, radius)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	m.Submeshes[0].IndexCount = 7
	if err := m.Validate(); err == nil {
		t.Error("submesh past the index list accepted")
	}
	m.Submeshes[0].IndexCount = 6
	m.Indices[5] = 4
	if err := m.Validate(); err == nil {
		t.Error("index past the vertex list accepted")
	}
}
