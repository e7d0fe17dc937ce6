package window

import (
	"sync"
	"testing"
)

func TestInputKeys(t *testing.T) {
	in := NewInput()
	in.KeyDown(87)
	in.KeyDown(65)
	in.KeyUp(65)

	if !in.IsKeyDown(87) {
		t.Error("W should be held")
	}
	if in.IsKeyDown(65) {
		t.Error("A should be released")
	}
	if in.IsKeyDown(83) {
		t.Error("S was never pressed")
	}
}

func TestInputDrag(t *testing.T) {
	tests := []struct {
		name   string
		events func(in *Input)
		button MouseButton
		dx, dy float32
	}{
		{
			name: "held button accumulates motion",
			events: func(in *Input) {
				in.MouseButton(MouseButtonLeft, true, 10, 10)
				in.MouseMove(15, 8)
				in.MouseMove(20, 4)
			},
			button: MouseButtonLeft,
			dx:     10,
			dy:     -6,
		},
		{
			name: "motion before press is ignored",
			events: func(in *Input) {
				in.MouseMove(0, 0)
				in.MouseMove(50, 50)
				in.MouseButton(MouseButtonLeft, true, 50, 50)
				in.MouseMove(53, 50)
			},
			button: MouseButtonLeft,
			dx:     3,
		},
		{
			name: "motion after release is ignored",
			events: func(in *Input) {
				in.MouseButton(MouseButtonRight, true, 0, 0)
				in.MouseMove(4, 0)
				in.MouseButton(MouseButtonRight, false, 4, 0)
				in.MouseMove(100, 100)
			},
			button: MouseButtonRight,
			dx:     4,
		},
		{
			name: "other buttons do not drag",
			events: func(in *Input) {
				in.MouseButton(MouseButtonMiddle, true, 0, 0)
				in.MouseMove(7, 7)
			},
			button: MouseButtonLeft,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInput()
			tt.events(in)
			dx, dy := in.ConsumeDrag(tt.button)
			if dx != tt.dx || dy != tt.dy {
				t.Errorf("drag = (%v, %v), want (%v, %v)", dx, dy, tt.dx, tt.dy)
			}
			if dx, dy := in.ConsumeDrag(tt.button); dx != 0 || dy != 0 {
				t.Errorf("second consume = (%v, %v), want zero", dx, dy)
			}
		})
	}
}

func TestInputScroll(t *testing.T) {
	in := NewInput()
	in.Scroll(1)
	in.Scroll(-0.5)
	in.Scroll(2)
	if got := in.ConsumeScroll(); got != 2.5 {
		t.Errorf("scroll = %v, want 2.5", got)
	}
	if got := in.ConsumeScroll(); got != 0 {
		t.Errorf("scroll after consume = %v, want 0", got)
	}
}

func TestInputConcurrentEvents(t *testing.T) {
	in := NewInput()
	in.MouseButton(MouseButtonLeft, true, 0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				in.Scroll(1)
				in.ConsumeDrag(MouseButtonLeft)
			}
		}()
	}
	wg.Wait()

	if got := in.ConsumeScroll(); got != 800 {
		t.Errorf("scroll = %v, want 800", got)
	}
}

func TestWindowOptionsClampSize(t *testing.T) {
	tests := []struct {
		name          string
		opts          []WindowBuilderOption
		width, height int
	}{
		{name: "defaults", width: 1280, height: 720},
		{name: "requested size", opts: []WindowBuilderOption{WithSize(1600, 900)}, width: 1600, height: 900},
		{name: "ignores non-positive", opts: []WindowBuilderOption{WithSize(0, -1)}, width: 1280, height: 720},
		{name: "clamped to max", opts: []WindowBuilderOption{WithSize(5000, 5000), WithMaxSize(1920, 1080)}, width: 1920, height: 1080},
		{name: "clamped to min", opts: []WindowBuilderOption{WithSize(100, 100), WithMinSize(640, 480)}, width: 640, height: 480},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &engineWindow{
				maxWidth: 3840, maxHeight: 2160,
				minWidth: 320, minHeight: 240,
				width: 1280, height: 720,
			}
			for _, opt := range tt.opts {
				opt(w)
			}
			w.clampSize()
			if w.width != tt.width || w.height != tt.height {
				t.Errorf("size = %dx%d, want %dx%d", w.width, w.height, tt.width, tt.height)
			}
		})
	}
}
