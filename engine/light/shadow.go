package light

import "github.com/Carmen-Shannon/oxy-gi/common"

// DefaultShadowRadius is the radius in world units of the sphere around the origin the shadow
// frustum covers.
const DefaultShadowRadius float32 = 10.0

// DefaultShadowNear is the near plane of the sun's orthographic shadow projection.
const DefaultShadowNear float32 = 1.0

// DefaultSunIntensity is the intensity written to the alpha of the sun strength constant.
const DefaultSunIntensity float32 = 9.0

// ShadowMatrices are the column-major transforms of one shadow frustum fit.
type ShadowMatrices struct {
	// LightPosition is the eye of the light view, 2*radius back along the light direction.
	LightPosition [3]float32
	View          [16]float32
	Proj          [16]float32
	// ViewProj maps world space to the light's clip space. The shadow map pass renders with it.
	ViewProj [16]float32
	// Transform maps world space to shadow-map texture space: ViewProj followed by TextureSpace.
	Transform [16]float32
}

// TextureSpace maps NDC [-1, 1]^2 to texture coordinates [0, 1]^2 with y flipped. Depth passes
// through unchanged.
var TextureSpace = [16]float32{
	0.5, 0, 0, 0,
	0, -0.5, 0, 0,
	0, 0, 1, 0,
	0.5, 0.5, 0, 1,
}

// FitShadowFrustum fits an orthographic shadow frustum around the sphere of the given radius
// centered on the origin. The light sits at -2*radius*dir looking at the origin with +Y up
// (+Z when dir is vertical); the box spans radius on either side of the sphere center in x and
// y, and depth runs from DefaultShadowNear to 2*radius.
//
// Parameters:
//   - dir: the direction the light travels in, normalized
//   - radius: the sphere radius
//
// Returns:
//   - ShadowMatrices: the fitted transforms
func FitShadowFrustum(dir [3]float32, radius float32) ShadowMatrices {
	var m ShadowMatrices
	dir = common.Normalize3(dir)
	m.LightPosition = common.Scale3(dir, -2*radius)

	up := [3]float32{0, 1, 0}
	if d := common.Dot3(dir, up); d > 0.999 || d < -0.999 {
		up = [3]float32{0, 0, 1}
	}
	eye := m.LightPosition
	common.LookAt(m.View[:], eye[0], eye[1], eye[2], 0, 0, 0, up[0], up[1], up[2])

	center := common.TransformPoint(m.View[:], [3]float32{})
	common.Orthographic(m.Proj[:],
		center[0]-radius, center[0]+radius,
		center[1]-radius, center[1]+radius,
		DefaultShadowNear, 2*radius)

	common.Mul4(m.ViewProj[:], m.Proj[:], m.View[:])
	common.Mul4(m.Transform[:], TextureSpace[:], m.ViewProj[:])
	return m
}
