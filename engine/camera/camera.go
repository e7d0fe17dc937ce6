package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-gi/common"
)

// Camera projection defaults.
const (
	DefaultFov  = 0.33 * math.Pi
	DefaultNear = 1.0
	DefaultFar  = 500.0
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu *sync.Mutex

	up [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	view        [16]float32
	invView     [16]float32
	proj        [16]float32
	invProj     [16]float32
	viewProj    [16]float32
	invViewProj [16]float32

	controller OrbitController
}

// Camera is a perspective camera whose eye and target come from an OrbitController.
//
// Matrices are column-major, right-handed, and project depth to [0, 1]. They are recomputed by
// Update and by every setter; the getters return copies.
type Camera interface {
	// Position returns the world-space eye position.
	Position() [3]float32

	// Target returns the world-space point the camera looks at.
	Target() [3]float32

	Fov() float32
	Aspect() float32
	Near() float32
	Far() float32

	View() [16]float32
	InvView() [16]float32
	Proj() [16]float32
	InvProj() [16]float32
	ViewProj() [16]float32
	InvViewProj() [16]float32

	// Frustum returns the view frustum planes extracted from ViewProj.
	//
	// Returns:
	//   - common.Frustum: the six normalized planes
	Frustum() common.Frustum

	// Controller returns the orbit controller driving the camera.
	Controller() OrbitController

	// SetAspect sets the viewport aspect ratio (width/height) and rebuilds the projection.
	//
	// Parameters:
	//   - aspect: the new aspect ratio, ignored when <= 0
	SetAspect(aspect float32)

	// Update reads the controller's eye and target and rebuilds every matrix.
	Update()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with a 0.33*pi vertical field of view, near plane 1 and far plane
// 500, then applies options. Without WithController the camera gets a default orbit controller.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the camera with its matrices computed
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		up:     [3]float32{0, 1, 0},
		fov:    DefaultFov,
		aspect: 1,
		near:   DefaultNear,
		far:    DefaultFar,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller == nil {
		c.controller = NewOrbitController()
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	return c.Controller().Position()
}

func (c *cameraImpl) Target() [3]float32 {
	return c.Controller().Target()
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) View() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) InvView() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invView
}

func (c *cameraImpl) Proj() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proj
}

func (c *cameraImpl) InvProj() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invProj
}

func (c *cameraImpl) ViewProj() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *cameraImpl) InvViewProj() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invViewProj
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractFrustumFromMatrix(c.viewProj[:])
}

func (c *cameraImpl) Controller() OrbitController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

// updateMatrices recomputes every matrix from the controller. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	eye := c.controller.Position()
	target := c.controller.Target()

	common.LookAt(c.view[:],
		eye[0], eye[1], eye[2],
		target[0], target[1], target[2],
		c.up[0], c.up[1], c.up[2],
	)
	common.Perspective(c.proj[:], c.fov, c.aspect, c.near, c.far)
	common.Mul4(c.viewProj[:], c.proj[:], c.view[:])

	common.Invert4(c.invView[:], c.view[:])
	common.Invert4(c.invProj[:], c.proj[:])
	common.Invert4(c.invViewProj[:], c.viewProj[:])
}
