package common

import "math"

// Plane is the set of points p with Dot3(Normal, p) + Distance == 0. Points with a positive
// value lie on the inner side.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum holds the six inward-facing planes of a view volume.
type Frustum struct {
	Planes [6]Plane
}

// Plane indices into Frustum.Planes.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// ExtractFrustumFromMatrix extracts the normalized planes of the clip volume of a column-major
// view-projection matrix (Gribb/Hartmann). Clip depth is [0, 1], so the near plane is the third
// row alone rather than row 4 + row 3.
//
// Parameters:
//   - viewProj: 16 float32 values, column-major
//
// Returns:
//   - Frustum: the world-space frustum
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	x, y, z, w := row(0), row(1), row(2), row(3)

	var f Frustum
	for i, eq := range [6][4]float32{
		FrustumLeft:   add4(w, x),
		FrustumRight:  sub4(w, x),
		FrustumBottom: add4(w, y),
		FrustumTop:    sub4(w, y),
		FrustumNear:   z,
		FrustumFar:    sub4(w, z),
	} {
		f.Planes[i] = normalizePlane(eq)
	}
	return f
}

func add4(a, b [4]float32) [4]float32 {
	return [4]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func sub4(a, b [4]float32) [4]float32 {
	return [4]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

// normalizePlane scales the equation so the normal has unit length. Degenerate equations are
// returned unscaled.
func normalizePlane(eq [4]float32) Plane {
	n := [3]float32{eq[0], eq[1], eq[2]}
	l := float32(math.Sqrt(float64(Dot3(n, n))))
	if l == 0 {
		return Plane{Normal: n, Distance: eq[3]}
	}
	return Plane{Normal: Scale3(n, 1/l), Distance: eq[3] / l}
}

// SignedDistance returns the distance from p to the plane, positive on the inner side.
func (p Plane) SignedDistance(pt [3]float32) float32 {
	return Dot3(p.Normal, pt) + p.Distance
}

// ContainsPoint reports whether pt lies inside every plane.
func (f *Frustum) ContainsPoint(pt [3]float32) bool {
	return f.ContainsSphere(pt, 0)
}

// ContainsSphere reports whether a sphere is at least partially inside the frustum. It errs on
// the side of inclusion near the frustum's corners.
func (f *Frustum) ContainsSphere(center [3]float32, radius float32) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}
