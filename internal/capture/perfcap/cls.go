package perfcap

import "time"

const (
	clsSessionGap  = 1 * time.Second
	clsSessionSpan = 5 * time.Second
)

// clsAccumulator implements the cumulative-layout-shift session-window
// algorithm: shift entries without recent input accumulate into the
// current session; a new session starts when the gap since the last
// entry exceeds clsSessionGap or the session's total span exceeds
// clsSessionSpan. The reported value is the maximum session total seen.
type clsAccumulator struct {
	sessionValue float64
	sessionStart float64
	lastEntry    float64
	hasEntry     bool
	maxSession   float64
}

// Add folds one layout-shift entry into the accumulator. startTime is
// in the same unit as the session-window thresholds (milliseconds).
func (c *clsAccumulator) Add(value, startTimeMS float64, hadRecentInput bool) {
	if hadRecentInput {
		return
	}

	gap := startTimeMS - c.lastEntry
	span := startTimeMS - c.sessionStart
	newSession := !c.hasEntry || gap > float64(clsSessionGap/time.Millisecond) || span > float64(clsSessionSpan/time.Millisecond)

	if newSession {
		c.sessionValue = value
		c.sessionStart = startTimeMS
	} else {
		c.sessionValue += value
	}
	c.lastEntry = startTimeMS
	c.hasEntry = true

	if c.sessionValue > c.maxSession {
		c.maxSession = c.sessionValue
	}
}

// Value returns the maximum session value observed so far.
func (c *clsAccumulator) Value() float64 {
	return c.maxSession
}
