// flush.go — Flush scheduling policy layered on top of the periodic tick.
//
// Two additional triggers fire a flush ahead of the next periodic tick:
// a debounced-immediate trigger scheduled on admission of any error
// event (coalesces bursts of errors into one flush, trailing edge), and
// a throttled-leading trigger scheduled on admission of any non-error
// event (fires at most once per window, leading edge, so the first
// event in a burst flushes promptly instead of waiting out the window).
package flush

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultDebounceWindow is the trailing window for the error trigger.
	DefaultDebounceWindow = 1 * time.Second
	// DefaultThrottleWindow is the leading window for the non-error trigger.
	DefaultThrottleWindow = 5 * time.Second
)

// Policy schedules flush() calls in response to event admission, in
// addition to whatever periodic tick the caller runs independently.
type Policy struct {
	debounceWindow time.Duration
	throttleWindow time.Duration
	flush          func()

	mu      sync.Mutex
	timer   *time.Timer
	limiter *rate.Limiter
	stopped bool
}

// New builds a Policy that calls flush on its triggers. Zero windows
// fall back to the package defaults.
func New(debounceWindow, throttleWindow time.Duration, flush func()) *Policy {
	if debounceWindow <= 0 {
		debounceWindow = DefaultDebounceWindow
	}
	if throttleWindow <= 0 {
		throttleWindow = DefaultThrottleWindow
	}
	return &Policy{
		debounceWindow: debounceWindow,
		throttleWindow: throttleWindow,
		flush:          flush,
		// Burst of 1 and a refill period equal to the window gives
		// exactly "fire on the leading edge, then at most once per window".
		limiter: rate.NewLimiter(rate.Every(throttleWindow), 1),
	}
}

// NotifyError schedules (or re-schedules) a trailing debounced flush.
// Repeated calls within the window push the deadline back, so a burst
// of errors produces exactly one flush after it quiesces.
func (p *Policy) NotifyError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounceWindow, p.flush)
}

// NotifyEvent triggers an immediate leading-edge flush at most once per
// throttle window. Calls within an already-open window are dropped.
func (p *Policy) NotifyEvent() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	if p.limiter.Allow() {
		p.flush()
	}
}

// Stop cancels any pending debounced flush and disables further triggers.
func (p *Policy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
