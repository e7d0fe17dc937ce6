package common

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestOrthographicDepthRange(t *testing.T) {
	var m [16]float32
	Orthographic(m[:], -10, 10, -10, 10, 1, 20)

	tests := []struct {
		in   [3]float32
		want [3]float32
	}{
		{[3]float32{0, 0, -1}, [3]float32{0, 0, 0}},
		{[3]float32{0, 0, -20}, [3]float32{0, 0, 1}},
		{[3]float32{10, -10, -10.5}, [3]float32{1, -1, 0.5}},
	}
	for _, tt := range tests {
		got := TransformPoint(m[:], tt.in)
		for i := range got {
			if !near(got[i], tt.want[i]) {
				t.Errorf("Orthographic * %v = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}

func TestBuildTRSMatrix(t *testing.T) {
	// 90 degrees about +Y maps +X to -Z.
	s := float32(math.Sqrt(0.5))
	var m [16]float32
	BuildTRSMatrix(m[:], [3]float32{1, 2, 3}, [4]float32{0, s, 0, s}, [3]float32{2, 2, 2})

	got := TransformPoint(m[:], [3]float32{1, 0, 0})
	want := [3]float32{1, 2, 1}
	for i := range got {
		if !near(got[i], want[i]) {
			t.Fatalf("TRS * (1,0,0) = %v, want %v", got, want)
		}
	}
}

func TestInvert4RoundTrip(t *testing.T) {
	var m, inv, id [16]float32
	LookAt(m[:], 3, 4, 5, 0, 0, 0, 0, 1, 0)
	if !Invert4(inv[:], m[:]) {
		t.Fatal("view matrix reported singular")
	}
	Mul4(id[:], m[:], inv[:])
	for i := range id {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if !near(id[i], want) {
			t.Fatalf("m * inv(m) = %v", id)
		}
	}
}

func TestNormalizeQuat(t *testing.T) {
	if q := NormalizeQuat([4]float32{}); q != [4]float32{0, 0, 0, 1} {
		t.Errorf("zero quaternion normalized to %v", q)
	}
	q := NormalizeQuat([4]float32{0, 2, 0, 0})
	if !near(q[1], 1) {
		t.Errorf("NormalizeQuat = %v", q)
	}
}

func TestFrustumContainsSphere(t *testing.T) {
	var view, proj, vp [16]float32
	LookAt(view[:], 0, 0, 5, 0, 0, 0, 0, 1, 0)
	Perspective(proj[:], math.Pi/2, 1, 0.1, 100)
	Mul4(vp[:], proj[:], view[:])
	f := ExtractFrustumFromMatrix(vp[:])

	if !f.ContainsSphere([3]float32{0, 0, 0}, 1) {
		t.Error("sphere at the look-at target culled")
	}
	if f.ContainsSphere([3]float32{0, 0, 20}, 1) {
		t.Error("sphere behind the camera not culled")
	}
	if !f.ContainsSphere([3]float32{0, 0, 6}, 2) {
		t.Error("sphere straddling the near plane culled")
	}
}

func TestFrustumNearPlaneUsesZeroToOneDepth(t *testing.T) {
	var view, proj, vp [16]float32
	LookAt(view[:], 0, 0, 5, 0, 0, 0, 0, 1, 0)
	Perspective(proj[:], math.Pi/2, 1, 1, 100)
	Mul4(vp[:], proj[:], view[:])
	f := ExtractFrustumFromMatrix(vp[:])

	tests := []struct {
		name string
		pt   [3]float32
		want bool
	}{
		{name: "between eye and near plane", pt: [3]float32{0, 0, 4.5}, want: false},
		{name: "just past the near plane", pt: [3]float32{0, 0, 3.9}, want: true},
		{name: "beyond the far plane", pt: [3]float32{0, 0, -96}, want: false},
		{name: "outside the left plane", pt: [3]float32{-10, 0, 0}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ContainsPoint(tt.pt); got != tt.want {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tt.pt, got, tt.want)
			}
		})
	}
	if d := f.Planes[FrustumNear].SignedDistance([3]float32{0, 0, 3}); !near(d, 1) {
		t.Errorf("near plane distance = %v, want 1", d)
	}
}
