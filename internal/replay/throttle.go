package replay

import (
	"sync"
	"time"
)

// Replay's throttle windows are tighter than behavior capture's: a
// replay is reconstructing pixel-accurate motion, not summarizing user
// intent, so scroll and mousemove sample more often here.
const (
	scrollRecordThrottle    = 100 * time.Millisecond
	mousemoveRecordThrottle = 50 * time.Millisecond
	resizeRecordThrottle    = 250 * time.Millisecond
)

// leadingThrottle admits the first call, then rejects further calls
// until window has elapsed since the last admitted call.
type leadingThrottle struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
	now    func() time.Time
}

func newLeadingThrottle(window time.Duration) *leadingThrottle {
	return &leadingThrottle{window: window, now: time.Now}
}

func (t *leadingThrottle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.window {
		return false
	}
	t.last = now
	return true
}
