package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gi/common"
)

// sun is the implementation of the Sun interface.
type sun struct {
	mu *sync.RWMutex

	direction    [3]float32
	strength     [3]float32
	intensity    float32
	shadowRadius float32
	castsShadows bool

	// revision increments on every change that moves the shadow frustum.
	revision uint64
}

// Sun is the single directional light of a scene. It lights every fragment with no distance
// attenuation and is the only shadow caster.
//
// The strength is the RGB color of the light; the intensity scales it and is written to the
// alpha of the sun strength constant.
type Sun interface {
	// Direction returns the normalized direction the light travels in.
	//
	// Returns:
	//   - [3]float32: direction as (x, y, z)
	Direction() [3]float32

	// Strength returns the RGB strength of the light.
	//
	// Returns:
	//   - [3]float32: strength as (r, g, b)
	Strength() [3]float32

	// Intensity returns the scalar multiplier applied to the strength in the shaders.
	//
	// Returns:
	//   - float32: the intensity
	Intensity() float32

	// CastsShadows reports whether the shadow map pass renders from this light.
	//
	// Returns:
	//   - bool: true if the sun casts shadows
	CastsShadows() bool

	// ShadowRadius returns the radius of the sphere around the origin the shadow frustum covers.
	//
	// Returns:
	//   - float32: the radius in world units
	ShadowRadius() float32

	// Revision returns a counter that changes whenever the direction or shadow radius changes.
	// Static shadow maps compare it to decide when to re-render.
	//
	// Returns:
	//   - uint64: the revision
	Revision() uint64

	// SetDirection sets the light direction. The direction is normalized before storing.
	//
	// Parameters:
	//   - dir: the new direction
	SetDirection(dir [3]float32)

	// SetStrength sets the RGB strength.
	//
	// Parameters:
	//   - strength: the new strength
	SetStrength(strength [3]float32)

	// SetIntensity sets the intensity multiplier.
	//
	// Parameters:
	//   - intensity: the new intensity
	SetIntensity(intensity float32)

	// ShadowMatrices fits the shadow frustum to the current direction.
	//
	// Returns:
	//   - ShadowMatrices: the light view, projection and shadow transforms
	ShadowMatrices() ShadowMatrices
}

var _ Sun = &sun{}

func (s *sun) Direction() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.direction
}

func (s *sun) Strength() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strength
}

func (s *sun) Intensity() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.intensity
}

func (s *sun) CastsShadows() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.castsShadows
}

func (s *sun) ShadowRadius() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shadowRadius
}

func (s *sun) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *sun) SetDirection(dir [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direction = common.Normalize3(dir)
	s.revision++
}

func (s *sun) SetStrength(strength [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strength = strength
}

func (s *sun) SetIntensity(intensity float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intensity = intensity
}

func (s *sun) ShadowMatrices() ShadowMatrices {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FitShadowFrustum(s.direction, s.shadowRadius)
}
