package common

// Key codes delivered to window key callbacks. They are GLFW key codes: printable keys use
// their uppercase ASCII value.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	// Orbit camera.
	KeyW = 'W'
	KeyA = 'A'
	KeyS = 'S'
	KeyD = 'D'

	// Pan camera.
	KeyQ = 'Q'
	KeyE = 'E'

	// Sun sweep in the demo.
	KeyL = 'L'

	KeySpace = ' '

	KeyEsc        = 256
	KeyBackspace  = 259
	KeyLeftShift  = 340
	KeyRightShift = 344
)
