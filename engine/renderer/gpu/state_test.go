package gpu

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

type stubTexture struct {
	state ResourceState
}

func (s *stubTexture) Label() string                { return "stub" }
func (s *stubTexture) Desc() TextureDesc            { return TextureDesc{Label: "stub"} }
func (s *stubTexture) State() ResourceState         { return s.state }
func (s *stubTexture) SetState(state ResourceState) { s.state = state }
func (s *stubTexture) Release()                     {}

func TestBarrierApply(t *testing.T) {
	tex := &stubTexture{state: StateGenericRead}

	if err := Transition(tex, StateGenericRead, StateRenderTarget).Apply(); err != nil {
		t.Fatalf("valid transition failed: %v", err)
	}
	if tex.State() != StateRenderTarget {
		t.Fatalf("state = %s, want RENDER_TARGET", tex.State())
	}

	err := Transition(tex, StateGenericRead, StateUnorderedAccess).Apply()
	if !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("mismatched transition error = %v, want ErrStateMismatch", err)
	}
	if tex.State() != StateRenderTarget {
		t.Fatalf("failed transition changed state to %s", tex.State())
	}
}

func TestApplyBarriersStopsAtFirstMismatch(t *testing.T) {
	a := &stubTexture{state: StateGenericRead}
	b := &stubTexture{state: StateCommon}

	err := ApplyBarriers([]Barrier{
		Transition(a, StateGenericRead, StateCopySource),
		Transition(b, StateGenericRead, StateCopyDest),
		Transition(a, StateCopySource, StateGenericRead),
	})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	if a.State() != StateCopySource {
		t.Errorf("a = %s, want COPY_SOURCE (barriers after the failure must not run)", a.State())
	}
	if b.State() != StateCommon {
		t.Errorf("b = %s, want COMMON", b.State())
	}
}

func TestBarrierNilResource(t *testing.T) {
	if err := (Barrier{Before: StateCommon, After: StateGenericRead}).Apply(); err == nil {
		t.Fatal("expected error for nil resource")
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		f       wgpu.TextureFormat
		bpp     uint32
		isDepth bool
	}{
		{wgpu.TextureFormatRGBA8Unorm, 4, false},
		{wgpu.TextureFormatRGBA16Float, 8, false},
		{wgpu.TextureFormatRGBA32Float, 16, false},
		{wgpu.TextureFormatDepth32Float, 4, true},
		{wgpu.TextureFormatDepth24PlusStencil8, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			if got := BytesPerPixel(tt.f); got != tt.bpp {
				t.Errorf("BytesPerPixel = %d, want %d", got, tt.bpp)
			}
			if got := IsDepthFormat(tt.f); got != tt.isDepth {
				t.Errorf("IsDepthFormat = %v, want %v", got, tt.isDepth)
			}
		})
	}

	if !CopyCompatible(wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb) {
		t.Error("rgba8unorm should copy to its srgb variant")
	}
	if CopyCompatible(wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatBGRA8Unorm) {
		t.Error("rgba8unorm must not copy to bgra8unorm")
	}
}

func TestPickSurfaceFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []wgpu.TextureFormat
		want    wgpu.TextureFormat
	}{
		{"first supported", []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm}, wgpu.TextureFormatBGRA8UnormSrgb},
		{"skips 10-bit", []wgpu.TextureFormat{wgpu.TextureFormatRGB10A2Unorm, wgpu.TextureFormatRGBA8Unorm}, wgpu.TextureFormatRGBA8Unorm},
		{"only 10-bit", []wgpu.TextureFormat{wgpu.TextureFormatRGB10A2Unorm}, wgpu.TextureFormatBGRA8Unorm},
		{"none", nil, wgpu.TextureFormatBGRA8Unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickSurfaceFormat(tt.formats); got != tt.want {
				t.Errorf("pickSurfaceFormat = %s, want %s", got, tt.want)
			}
		})
	}
}
