package camera

// OrbitController owns the eye and target of a camera. The eye sits on a sphere around the
// target described by radius, azimuth (around +Y, 0 on +Z) and elevation (above the XZ plane).
// Orbit methods move the eye on that sphere; pan methods translate eye and target together.
type OrbitController interface {
	// Position returns the world-space eye position.
	Position() [3]float32

	// Target returns the orbit pivot.
	Target() [3]float32

	// SetTarget moves the pivot and recomputes the eye from the spherical coordinates.
	//
	// Parameters:
	//   - target: world-space pivot
	SetTarget(target [3]float32)

	// LookFrom places the eye at position, recomputing radius, azimuth and elevation relative to
	// the current target. Radius and elevation are clamped to their bounds.
	//
	// Parameters:
	//   - position: world-space eye position
	LookFrom(position [3]float32)

	// Orbit rotates the eye by the given angles in radians. Elevation is clamped.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle
	//   - dElevation: change of the vertical angle
	Orbit(dAzimuth, dElevation float32)

	// OrbitLeft, OrbitRight, OrbitUp and OrbitDown orbit by one OrbitSpeed step.
	OrbitLeft()
	OrbitRight()
	OrbitUp()
	OrbitDown()

	// Drag orbits by a cursor delta in pixels scaled by MouseSensitivity.
	//
	// Parameters:
	//   - dx, dy: cursor movement since the last call
	Drag(dx, dy float32)

	// Zoom moves the eye toward the target by delta scaled by ZoomSpeed. Positive delta zooms in.
	//
	// Parameters:
	//   - delta: zoom amount
	Zoom(delta float32)

	// Pan translates eye and target along the camera's right, up and forward axes, each scaled by
	// PanSpeed.
	//
	// Parameters:
	//   - right, up, forward: movement along each local axis
	Pan(right, up, forward float32)

	Radius() float32
	Azimuth() float32
	Elevation() float32

	// SetRadius sets the orbit radius, clamped to [MinRadius, MaxRadius].
	SetRadius(radius float32)

	MinRadius() float32
	MaxRadius() float32
	OrbitSpeed() float32
	MouseSensitivity() float32
	ZoomSpeed() float32
	PanSpeed() float32
}
