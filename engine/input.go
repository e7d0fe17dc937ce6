package engine

import (
	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/camera"
	"github.com/Carmen-Shannon/oxy-gi/engine/window"
)

// referenceTickRate is the frame rate at which one key poll moves the camera by exactly one
// step of its controller speeds.
const referenceTickRate = 60

// applyCameraInput drives controller from held keys, left-button drags and the scroll wheel.
// A/D orbit left and right, W/S orbit up and down, Q/E pan down and up, shift pans toward the
// target instead. Key motion is scaled by dt so the speed does not depend on the frame rate.
func applyCameraInput(in *window.Input, controller camera.OrbitController, dt float32) {
	steps := dt * referenceTickRate
	az, el := float32(0), float32(0)
	if in.IsKeyDown(common.KeyA) {
		az -= steps
	}
	if in.IsKeyDown(common.KeyD) {
		az += steps
	}
	if in.IsKeyDown(common.KeyW) {
		el += steps
	}
	if in.IsKeyDown(common.KeyS) {
		el -= steps
	}
	if az != 0 || el != 0 {
		speed := controller.OrbitSpeed()
		controller.Orbit(az*speed, el*speed)
	}

	var pan float32
	if in.IsKeyDown(common.KeyE) {
		pan += steps
	}
	if in.IsKeyDown(common.KeyQ) {
		pan -= steps
	}
	if pan != 0 {
		if in.IsKeyDown(common.KeyLeftShift) {
			controller.Pan(0, 0, pan)
		} else {
			controller.Pan(0, pan, 0)
		}
	}

	if dx, dy := in.ConsumeDrag(window.MouseButtonLeft); dx != 0 || dy != 0 {
		controller.Drag(dx, dy)
	}
	if dx, dy := in.ConsumeDrag(window.MouseButtonRight); (dx != 0 || dy != 0) && controller.PanSpeed() > 0 {
		// one pixel moves the target by MouseSensitivity radians of arc at the current radius
		s := controller.MouseSensitivity() / controller.PanSpeed() * controller.Radius()
		controller.Pan(-dx*s, dy*s, 0)
	}
	if s := in.ConsumeScroll(); s != 0 {
		controller.Zoom(s)
	}
}
