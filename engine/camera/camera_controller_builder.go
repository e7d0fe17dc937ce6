package camera

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*orbitControllerImpl)

// WithRadius sets the initial distance from the target.
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.radius = radius
	}
}

// WithAngles sets the initial azimuth and elevation in radians.
func WithAngles(azimuth, elevation float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.azimuth = azimuth
		oc.elevation = elevation
	}
}

// WithTarget sets the orbit pivot.
//
// Parameters:
//   - target: world-space pivot
//
// Returns:
//   - OrbitControllerOption: functional option to set the target
func WithTarget(target [3]float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.target = target
	}
}

// WithRadiusBounds sets the zoom limits. Ignored unless 0 < min <= max.
//
// Parameters:
//   - min: closest distance to the target
//   - max: farthest distance from the target
//
// Returns:
//   - OrbitControllerOption: functional option to set the bounds
func WithRadiusBounds(min, max float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		if min > 0 && min <= max {
			oc.minRadius, oc.maxRadius = min, max
		}
	}
}

// WithElevationBounds sets the vertical angle limits in radians. Ignored unless min <= max.
func WithElevationBounds(min, max float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		if min <= max {
			oc.minElevation, oc.maxElevation = min, max
		}
	}
}

// WithSpeeds sets the keyboard orbit step, the mouse sensitivity, the zoom and the pan speed.
// Non-positive values keep the default.
func WithSpeeds(orbit, mouse, zoom, pan float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		if orbit > 0 {
			oc.orbitSpeed = orbit
		}
		if mouse > 0 {
			oc.mouseSensitivity = mouse
		}
		if zoom > 0 {
			oc.zoomSpeed = zoom
		}
		if pan > 0 {
			oc.panSpeed = pan
		}
	}
}

// WithLookFrom seeds the spherical coordinates from an eye position relative to the target.
// Applied after the other options regardless of order.
//
// Parameters:
//   - position: world-space eye position
//
// Returns:
//   - OrbitControllerOption: functional option to seed the eye
func WithLookFrom(position [3]float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.seed = &position
	}
}
