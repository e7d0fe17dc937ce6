package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-gi/common"
)

// orbitControllerImpl is the implementation of OrbitController.
type orbitControllerImpl struct {
	mu *sync.Mutex

	position [3]float32
	target   [3]float32

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32

	seed *[3]float32
}

var _ OrbitController = &orbitControllerImpl{}

// NewOrbitController creates an orbit controller looking at the origin from 50 units away,
// 30 degrees above the horizon, then applies options.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - OrbitController: the newly created controller
func NewOrbitController(options ...OrbitControllerOption) OrbitController {
	oc := &orbitControllerImpl{
		mu: &sync.Mutex{},

		radius:    50,
		elevation: float32(math.Pi / 6),

		minRadius:    1,
		maxRadius:    1000,
		minElevation: -float32(math.Pi/2 - 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),

		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        1,
		panSpeed:         0.25,
	}
	for _, option := range options {
		option(oc)
	}
	oc.radius = clamp(oc.radius, oc.minRadius, oc.maxRadius)
	oc.elevation = clamp(oc.elevation, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
	if oc.seed != nil {
		oc.LookFrom(*oc.seed)
		oc.seed = nil
	}
	return oc
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}

// updatePosition recomputes the eye from the spherical coordinates. Caller must hold the mutex.
func (oc *orbitControllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(oc.elevation)))
	sinElev := float32(math.Sin(float64(oc.elevation)))
	cosAzim := float32(math.Cos(float64(oc.azimuth)))
	sinAzim := float32(math.Sin(float64(oc.azimuth)))

	oc.position = common.Add3(oc.target, [3]float32{
		oc.radius * cosElev * sinAzim,
		oc.radius * sinElev,
		oc.radius * cosElev * cosAzim,
	})
}

// axes returns the right, up and forward vectors of the LookAt basis. All three are zero when
// the eye coincides with the target or looks straight along Y. Caller must hold the mutex.
func (oc *orbitControllerImpl) axes() (right, up, forward [3]float32) {
	back := common.Sub3(oc.position, oc.target)
	if common.Dot3(back, back) < 1e-12 {
		return
	}
	back = common.Normalize3(back)
	right = common.Cross3([3]float32{0, 1, 0}, back)
	if common.Dot3(right, right) < 1e-12 {
		return [3]float32{}, [3]float32{}, [3]float32{}
	}
	right = common.Normalize3(right)
	up = common.Cross3(back, right)
	forward = common.Scale3(back, -1)
	return
}

func (oc *orbitControllerImpl) Position() [3]float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.position
}

func (oc *orbitControllerImpl) Target() [3]float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target
}

func (oc *orbitControllerImpl) SetTarget(target [3]float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.target = target
	oc.updatePosition()
}

func (oc *orbitControllerImpl) LookFrom(position [3]float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	d := common.Sub3(position, oc.target)
	r := float32(math.Sqrt(float64(common.Dot3(d, d))))
	if r < 1e-6 {
		return
	}
	oc.radius = clamp(r, oc.minRadius, oc.maxRadius)
	oc.azimuth = float32(math.Atan2(float64(d[0]), float64(d[2])))
	oc.elevation = clamp(float32(math.Asin(float64(d[1]/r))), oc.minElevation, oc.maxElevation)
	oc.updatePosition()
}

func (oc *orbitControllerImpl) Orbit(dAzimuth, dElevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth = float32(math.Remainder(float64(oc.azimuth+dAzimuth), 2*math.Pi))
	oc.elevation = clamp(oc.elevation+dElevation, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
}

func (oc *orbitControllerImpl) OrbitLeft()  { oc.Orbit(-oc.OrbitSpeed(), 0) }
func (oc *orbitControllerImpl) OrbitRight() { oc.Orbit(oc.OrbitSpeed(), 0) }
func (oc *orbitControllerImpl) OrbitUp()    { oc.Orbit(0, oc.OrbitSpeed()) }
func (oc *orbitControllerImpl) OrbitDown()  { oc.Orbit(0, -oc.OrbitSpeed()) }

func (oc *orbitControllerImpl) Drag(dx, dy float32) {
	s := oc.MouseSensitivity()
	oc.Orbit(-dx*s, dy*s)
}

func (oc *orbitControllerImpl) Zoom(delta float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = clamp(oc.radius-delta*oc.zoomSpeed, oc.minRadius, oc.maxRadius)
	oc.updatePosition()
}

func (oc *orbitControllerImpl) Pan(right, up, forward float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()

	r, u, f := oc.axes()
	move := common.Add3(common.Add3(common.Scale3(r, right), common.Scale3(u, up)), common.Scale3(f, forward))
	move = common.Scale3(move, oc.panSpeed)
	oc.target = common.Add3(oc.target, move)
	oc.position = common.Add3(oc.position, move)
}

func (oc *orbitControllerImpl) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

func (oc *orbitControllerImpl) SetRadius(radius float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = clamp(radius, oc.minRadius, oc.maxRadius)
	oc.updatePosition()
}

func (oc *orbitControllerImpl) Azimuth() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.azimuth
}

func (oc *orbitControllerImpl) Elevation() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.elevation
}

func (oc *orbitControllerImpl) MinRadius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.minRadius
}

func (oc *orbitControllerImpl) MaxRadius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.maxRadius
}

func (oc *orbitControllerImpl) OrbitSpeed() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.orbitSpeed
}

func (oc *orbitControllerImpl) MouseSensitivity() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.mouseSensitivity
}

func (oc *orbitControllerImpl) ZoomSpeed() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.zoomSpeed
}

func (oc *orbitControllerImpl) PanSpeed() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.panSpeed
}
