package window

import "sync"

// Input accumulates window events so the render thread can poll them once per frame.
// Window callbacks and the poller may run on different goroutines.
type Input struct {
	mu *sync.Mutex

	keys    map[uint32]bool
	buttons map[MouseButton]bool
	drag    map[MouseButton][2]float32

	cursor    [2]int32
	hasCursor bool
	scroll    float32
}

// NewInput returns an empty input tracker.
func NewInput() *Input {
	return &Input{
		mu:      &sync.Mutex{},
		keys:    make(map[uint32]bool),
		buttons: make(map[MouseButton]bool),
		drag:    make(map[MouseButton][2]float32),
	}
}

// Attach registers the tracker's handlers as w's key, mouse and scroll callbacks, replacing any
// set before.
func (in *Input) Attach(w Window) {
	w.SetKeyDownCallback(in.KeyDown)
	w.SetKeyUpCallback(in.KeyUp)
	w.SetMouseButtonCallback(in.MouseButton)
	w.SetMouseMoveCallback(in.MouseMove)
	w.SetScrollCallback(in.Scroll)
}

func (in *Input) KeyDown(keyCode uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.keys[keyCode] = true
}

func (in *Input) KeyUp(keyCode uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.keys, keyCode)
}

func (in *Input) MouseButton(button MouseButton, pressed bool, x, y int32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if pressed {
		in.buttons[button] = true
	} else {
		delete(in.buttons, button)
	}
	in.cursor = [2]int32{x, y}
	in.hasCursor = true
}

// MouseMove adds the cursor motion since the last event to the drag of every held button.
func (in *Input) MouseMove(x, y int32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.hasCursor {
		dx := float32(x - in.cursor[0])
		dy := float32(y - in.cursor[1])
		for b := range in.buttons {
			d := in.drag[b]
			in.drag[b] = [2]float32{d[0] + dx, d[1] + dy}
		}
	}
	in.cursor = [2]int32{x, y}
	in.hasCursor = true
}

func (in *Input) Scroll(delta float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.scroll += delta
}

// IsKeyDown reports whether keyCode is held.
func (in *Input) IsKeyDown(keyCode uint32) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.keys[keyCode]
}

// IsButtonDown reports whether button is held.
func (in *Input) IsButtonDown(button MouseButton) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.buttons[button]
}

// ConsumeDrag returns the cursor motion in pixels accumulated while button was held and resets it.
func (in *Input) ConsumeDrag(button MouseButton) (dx, dy float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	d := in.drag[button]
	delete(in.drag, button)
	return d[0], d[1]
}

// ConsumeScroll returns the scroll accumulated since the last call and resets it.
func (in *Input) ConsumeScroll() float32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	s := in.scroll
	in.scroll = 0
	return s
}
