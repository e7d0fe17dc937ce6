package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial client area size in screen coordinates. Non-positive values keep
// the default of 1280x720.
//
// Parameters:
//   - width, height: the requested size
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 && height > 0 {
			w.width, w.height = width, height
		}
	}
}

// WithMinSize sets the smallest size the user can resize the window to.
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 && height > 0 {
			w.minWidth, w.minHeight = width, height
		}
	}
}

// WithMaxSize sets the largest size the user can resize the window to.
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 && height > 0 {
			w.maxWidth, w.maxHeight = width, height
		}
	}
}

// clampSize keeps the initial size inside the resize limits.
func (w *engineWindow) clampSize() {
	if w.minWidth > w.maxWidth {
		w.minWidth = w.maxWidth
	}
	if w.minHeight > w.maxHeight {
		w.minHeight = w.maxHeight
	}
	w.width = min(max(w.width, w.minWidth), w.maxWidth)
	w.height = min(max(w.height, w.minHeight), w.maxHeight)
}
