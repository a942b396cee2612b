// capture.go — Performance capture component.
//
// Combines a one-shot navigation-timing reading with streamed
// paint/web-vitals signals and user-driven custom marks/measures into
// one performance event per collection cycle.
package perfcap

import (
	"context"
	"sync"
	"time"

	"github.com/monitorcore/monitorcore/internal/bridge"
	"github.com/monitorcore/monitorcore/internal/event"
	"github.com/monitorcore/monitorcore/internal/util"
)

// Sources bundles the bridge feeds this component listens to.
type Sources struct {
	Navigation  bridge.Source[NavigationSignal]
	Paint       bridge.Source[PaintSignal]
	LCP         bridge.Source[LCPSignal]
	LayoutShift bridge.Source[LayoutShiftSignal]
	FirstInput  bridge.Source[FirstInputSignal]
}

// Capture accumulates streamed web-vitals state and produces one
// performance event per Collect call.
type Capture struct {
	appID, sessionID, userID string
	now                      func() int64

	mu      sync.Mutex
	nav     *NavigationSignal
	fcp     *float64
	lcp     *float64
	fid     *float64
	cls     clsAccumulator
	marks   map[string]float64
	metrics map[string]float64

	cancel context.CancelFunc
}

// New builds a Capture for one session.
func New(appID, sessionID, userID string) *Capture {
	return &Capture{
		appID:     appID,
		sessionID: sessionID,
		userID:    userID,
		now:       func() int64 { return time.Now().UnixMilli() },
		marks:     make(map[string]float64),
		metrics:   make(map[string]float64),
	}
}

// Start subscribes to every non-nil source in src until ctx is done or
// Stop is called.
func (c *Capture) Start(ctx context.Context, src Sources) {
	ctx, c.cancel = context.WithCancel(ctx)

	if src.Navigation != nil {
		util.SafeGo(func() {
			for sig := range src.Navigation.Listen(ctx) {
				c.mu.Lock()
				s := sig
				c.nav = &s
				c.mu.Unlock()
			}
		})
	}
	if src.Paint != nil {
		util.SafeGo(func() {
			for sig := range src.Paint.Listen(ctx) {
				if sig.Name != "first-contentful-paint" {
					continue
				}
				c.mu.Lock()
				v := sig.StartTime
				c.fcp = &v
				c.mu.Unlock()
			}
		})
	}
	if src.LCP != nil {
		util.SafeGo(func() {
			for sig := range src.LCP.Listen(ctx) {
				c.mu.Lock()
				v := sig.StartTime
				c.lcp = &v
				c.mu.Unlock()
			}
		})
	}
	if src.LayoutShift != nil {
		util.SafeGo(func() {
			for sig := range src.LayoutShift.Listen(ctx) {
				c.mu.Lock()
				c.cls.Add(sig.Value, sig.StartTime, sig.HadRecentInput)
				c.mu.Unlock()
			}
		})
	}
	if src.FirstInput != nil {
		util.SafeGo(func() {
			for sig := range src.FirstInput.Listen(ctx) {
				c.mu.Lock()
				if c.fid == nil {
					v := sig.ProcessingStart - sig.EventTimestamp
					c.fid = &v
				}
				c.mu.Unlock()
			}
		})
	}
}

// Stop disconnects every source subscription started by Start.
func (c *Capture) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Mark records a named timestamp mark, mirroring performance.mark.
func (c *Capture) Mark(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks[name] = float64(c.now())
}

// Measure records the duration between two marks (or "now" if end is
// omitted) under name into customMetrics. start defaults to "" meaning
// time origin (0).
func (c *Capture) Measure(name, start, end string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var startMS, endMS float64
	if start != "" {
		startMS = c.marks[start]
	}
	if end != "" {
		endMS = c.marks[end]
	} else {
		endMS = float64(c.now())
	}
	c.metrics[name] = endMS - startMS
}

// Collect builds one performance event from the accumulated state. CLS
// is read non-destructively (the session-max persists across cycles,
// matching a browser's PerformanceObserver which never resets CLS mid-page).
func (c *Capture) Collect() event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := event.Metrics{
		FCP:           c.fcp,
		LCP:           c.lcp,
		FID:           c.fid,
		CustomMetrics: cloneMetrics(c.metrics),
	}
	if c.cls.hasEntry {
		v := c.cls.Value()
		m.CLS = &v
	}
	if c.nav != nil {
		m.PageLoadTime = c.nav.LoadEventEnd - c.nav.NavigationStart
		m.DomReadyTime = c.nav.DomContentLoadedEventEnd - c.nav.NavigationStart
		m.ResourceLoadTime = c.nav.LoadEventEnd - c.nav.DomContentLoadedEventEnd
		ttfb := c.nav.ResponseStart - c.nav.RequestStart
		m.TTFB = &ttfb
	}

	return event.Event{
		Envelope: event.NewEnvelope(c.appID, c.sessionID, c.userID, event.KindPerformance, c.now()),
		Payload:  &event.PerformancePayload{Metrics: m},
	}
}

func cloneMetrics(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
