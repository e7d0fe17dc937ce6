package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gi/common"
)

// SunBuilderOption is a function that configures a Sun instance during construction.
type SunBuilderOption func(*sun)

// NewSun creates a white, downward-pointing sun with the default intensity and shadow radius,
// then applies options.
//
// Parameters:
//   - options: variadic list of SunBuilderOption functions to configure the sun
//
// Returns:
//   - Sun: the configured sun
func NewSun(options ...SunBuilderOption) Sun {
	s := &sun{
		mu:           &sync.RWMutex{},
		direction:    [3]float32{0, -1, 0},
		strength:     [3]float32{1, 1, 1},
		intensity:    DefaultSunIntensity,
		shadowRadius: DefaultShadowRadius,
		castsShadows: true,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// WithDirection is an option builder that sets the direction the light travels in.
// The direction is normalized before storing.
//
// Parameters:
//   - dir: the direction
//
// Returns:
//   - SunBuilderOption: a function that applies the direction option to a sun
func WithDirection(dir [3]float32) SunBuilderOption {
	return func(s *sun) {
		s.direction = common.Normalize3(dir)
	}
}

// WithStrength is an option builder that sets the RGB strength of the light.
//
// Parameters:
//   - strength: the strength as (r, g, b)
//
// Returns:
//   - SunBuilderOption: a function that applies the strength option to a sun
func WithStrength(strength [3]float32) SunBuilderOption {
	return func(s *sun) {
		s.strength = strength
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - SunBuilderOption: a function that applies the intensity option to a sun
func WithIntensity(intensity float32) SunBuilderOption {
	return func(s *sun) {
		s.intensity = intensity
	}
}

// WithShadowRadius is an option builder that sets the radius of the sphere around the origin
// the shadow frustum is fitted to. Values <= 0 are ignored.
//
// Parameters:
//   - radius: the radius in world units
//
// Returns:
//   - SunBuilderOption: a function that applies the radius option to a sun
func WithShadowRadius(radius float32) SunBuilderOption {
	return func(s *sun) {
		if radius > 0 {
			s.shadowRadius = radius
		}
	}
}

// WithCastsShadows is an option builder that sets whether the sun casts shadows.
//
// Parameters:
//   - castsShadows: true to render the shadow map from this light
//
// Returns:
//   - SunBuilderOption: a function that applies the option to a sun
func WithCastsShadows(castsShadows bool) SunBuilderOption {
	return func(s *sun) {
		s.castsShadows = castsShadows
	}
}
