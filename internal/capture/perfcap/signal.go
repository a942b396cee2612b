// signal.go — Shapes forwarded by the host environment for performance capture.
package perfcap

// NavigationSignal carries the one-shot navigation-timing entry.
type NavigationSignal struct {
	NavigationStart          float64
	LoadEventEnd             float64
	DomContentLoadedEventEnd float64
	ResponseStart            float64
	RequestStart             float64
}

// PaintSignal is a paint-entry-equivalent (first-paint / first-contentful-paint).
type PaintSignal struct {
	Name      string // "first-paint" | "first-contentful-paint"
	StartTime float64
}

// LCPSignal is one largest-contentful-paint entry in the stream; the
// final reported value is whichever arrived last before collection.
type LCPSignal struct {
	StartTime float64
}

// LayoutShiftSignal is one layout-shift entry.
type LayoutShiftSignal struct {
	Value          float64
	StartTime      float64
	HadRecentInput bool
}

// FirstInputSignal is the first of {mousedown, keydown, touchstart,
// pointerdown}; the host environment self-removes its listener after
// the first delivery (capture+once semantics).
type FirstInputSignal struct {
	EventTimestamp  float64
	ProcessingStart float64
}
