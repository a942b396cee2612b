// signal.go — Shapes forwarded by the host environment for behavior capture.
package behaviorcap

// PointerSignal covers click, focus, and blur: interactions keyed to a
// single target element with no associated value.
type PointerSignal struct {
	Frames []ElementFrame
	X, Y   float64
	HasXY  bool
}

// InputSignal covers input and change events on form controls.
type InputSignal struct {
	Frames    []ElementFrame
	InputType string
	Name      string
	ID        string
	Value     string
}

// ScrollSignal carries the scroll position at the time of the event.
type ScrollSignal struct {
	X, Y float64
}

// MouseMoveSignal carries the pointer position; opt-in, disabled unless
// the capture is explicitly configured to listen for it.
type MouseMoveSignal struct {
	X, Y float64
}

// ResizeSignal carries the new viewport dimensions.
type ResizeSignal struct {
	Width, Height float64
}

// NavigateSignal is produced by a popstate event or by the wrapped
// pushState/replaceState history methods.
type NavigateSignal struct {
	URL    string
	Path   string
	Search string
	Hash   string
}

// VisibilitySignal carries the document's new visibility state.
type VisibilitySignal struct {
	State string
}
