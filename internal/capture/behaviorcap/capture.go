// capture.go — Behavior capture component.
//
// Listens for user-interaction signals forwarded by the host
// environment, applies the per-action throttle/debounce policy, masks
// sensitive input values, and holds admitted events in a 500-entry
// oldest-drop buffer until the orchestrator drains them.
package behaviorcap

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/monitorcore/monitorcore/internal/bridge"
	"github.com/monitorcore/monitorcore/internal/event"
	"github.com/monitorcore/monitorcore/internal/logx"
	"github.com/monitorcore/monitorcore/internal/queue"
	"github.com/monitorcore/monitorcore/internal/util"
)

// BufferCapacity bounds the capture-side buffer.
const BufferCapacity = 500

// Sources bundles the bridge feeds this component listens to.
// MouseMove is opt-in: a host environment that does not wire it simply
// never exercises that capture path.
type Sources struct {
	Click      bridge.Source[PointerSignal]
	Scroll     bridge.Source[ScrollSignal]
	Input      bridge.Source[InputSignal]
	Change     bridge.Source[InputSignal]
	Focus      bridge.Source[PointerSignal]
	Blur       bridge.Source[PointerSignal]
	Navigate   bridge.Source[NavigateSignal]
	MouseMove  bridge.Source[MouseMoveSignal]
	Resize     bridge.Source[ResizeSignal]
	Visibility bridge.Source[VisibilitySignal]
}

// Capture owns the buffer and per-action throttle/debounce state for one session.
type Capture struct {
	appID, sessionID, userID string
	now                      func() int64

	buf *queue.Queue[event.Event]
	log *logx.Logger

	scrollThrottle    *leadingThrottle
	mousemoveThrottle *leadingThrottle
	resizeThrottle    *leadingThrottle
	inputDebounce     *trailingDebounce

	pendingMu    sync.Mutex
	pendingInput *event.Event

	maskInputs      bool
	blockedElements map[string]bool

	cancel context.CancelFunc
}

// SetMaskSensitiveData toggles whether sensitive input/change values
// are masked to event.MaskedValue. Defaults to enabled; set to false
// only when config.Privacy.MaskSensitiveData is explicitly disabled.
func (c *Capture) SetMaskSensitiveData(enabled bool) {
	c.maskInputs = enabled
}

// SetBlockedElements marks element tag names (case-insensitive) whose
// interactions are never captured, regardless of which signal fires on
// them — a nil or empty list disables the filter entirely.
func (c *Capture) SetBlockedElements(tags []string) {
	if len(tags) == 0 {
		c.blockedElements = nil
		return
	}
	blocked := make(map[string]bool, len(tags))
	for _, t := range tags {
		blocked[strings.ToLower(t)] = true
	}
	c.blockedElements = blocked
}

// isBlocked reports whether frames' leaf element's tag is on the
// blocked list. frames is root-first, leaf-last.
func (c *Capture) isBlocked(frames []ElementFrame) bool {
	if len(c.blockedElements) == 0 || len(frames) == 0 {
		return false
	}
	return c.blockedElements[strings.ToLower(frames[len(frames)-1].Tag)]
}

// flushPendingInput enqueues the most recently scheduled debounced input
// value, if any. Called both from the debounce timer goroutine and from
// Stop, hence the lock.
func (c *Capture) flushPendingInput() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.pendingInput != nil {
		c.buf.Enqueue(*c.pendingInput)
		c.pendingInput = nil
	}
}

// New builds a Capture for one session.
func New(appID, sessionID, userID string, log *logx.Logger) *Capture {
	if log == nil {
		log = logx.New("[monitorcore]", false)
	}
	c := &Capture{
		appID:             appID,
		sessionID:         sessionID,
		userID:            userID,
		now:               func() int64 { return time.Now().UnixMilli() },
		buf:               queue.New[event.Event](BufferCapacity),
		log:               log,
		scrollThrottle:    newLeadingThrottle(scrollThrottle),
		mousemoveThrottle: newLeadingThrottle(mousemoveThrottle),
		resizeThrottle:    newLeadingThrottle(resizeThrottle),
		maskInputs:        true,
	}
	c.buf.OnDrop(func(dropped event.Event) {
		log.Warnf("behaviorcap: buffer overflow, dropped event %s", dropped.EventID)
	})
	c.inputDebounce = newTrailingDebounce(inputDebounce, c.flushPendingInput)
	return c
}

// Start subscribes to every non-nil source in src until ctx is done or
// Stop is called.
func (c *Capture) Start(ctx context.Context, src Sources) {
	ctx, c.cancel = context.WithCancel(ctx)

	if src.Click != nil {
		util.SafeGo(func() {
			for sig := range src.Click.Listen(ctx) {
				c.admitPointer(event.ActionClick, sig)
			}
		})
	}
	if src.Focus != nil {
		util.SafeGo(func() {
			for sig := range src.Focus.Listen(ctx) {
				c.admitPointer(event.ActionFocus, sig)
			}
		})
	}
	if src.Blur != nil {
		util.SafeGo(func() {
			for sig := range src.Blur.Listen(ctx) {
				c.admitPointer(event.ActionBlur, sig)
			}
		})
	}
	if src.Scroll != nil {
		util.SafeGo(func() {
			for sig := range src.Scroll.Listen(ctx) {
				if c.scrollThrottle.Allow() {
					c.admitScroll(sig)
				}
			}
		})
	}
	if src.MouseMove != nil {
		util.SafeGo(func() {
			for sig := range src.MouseMove.Listen(ctx) {
				if c.mousemoveThrottle.Allow() {
					c.admitMouseMove(sig)
				}
			}
		})
	}
	if src.Resize != nil {
		util.SafeGo(func() {
			for sig := range src.Resize.Listen(ctx) {
				if c.resizeThrottle.Allow() {
					c.admitResize(sig)
				}
			}
		})
	}
	if src.Input != nil {
		util.SafeGo(func() {
			for sig := range src.Input.Listen(ctx) {
				c.scheduleInput(event.ActionInput, sig)
			}
		})
	}
	if src.Change != nil {
		util.SafeGo(func() {
			for sig := range src.Change.Listen(ctx) {
				c.admitInputNow(event.ActionChange, sig)
			}
		})
	}
	if src.Navigate != nil {
		util.SafeGo(func() {
			for sig := range src.Navigate.Listen(ctx) {
				c.admitNavigate(sig)
			}
		})
	}
	if src.Visibility != nil {
		util.SafeGo(func() {
			for sig := range src.Visibility.Listen(ctx) {
				c.admitVisibility(sig)
			}
		})
	}
}

// Stop disconnects every source subscription started by Start and
// flushes any pending debounced input immediately rather than losing it.
func (c *Capture) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.inputDebounce.Stop()
	c.flushPendingInput()
}

// Drain removes and returns up to n buffered events (all, if n <= 0).
func (c *Capture) Drain(n int) []event.Event {
	return c.buf.Drain(n)
}

func (c *Capture) admitPointer(action event.Action, sig PointerSignal) {
	if c.isBlocked(sig.Frames) {
		return
	}
	payload := &event.BehaviorPayload{
		Action: action,
		Target: EncodeTargetPath(sig.Frames),
	}
	if sig.HasXY {
		payload.Coordinates = &event.Coordinates{X: sig.X, Y: sig.Y}
	}
	c.enqueue(payload)
}

func (c *Capture) admitScroll(sig ScrollSignal) {
	c.enqueue(&event.BehaviorPayload{
		Action:      event.ActionScroll,
		Coordinates: &event.Coordinates{X: sig.X, Y: sig.Y},
	})
}

func (c *Capture) admitMouseMove(sig MouseMoveSignal) {
	c.enqueue(&event.BehaviorPayload{
		Action:      event.ActionCustom,
		Value:       "mousemove",
		Coordinates: &event.Coordinates{X: sig.X, Y: sig.Y},
	})
}

func (c *Capture) admitResize(sig ResizeSignal) {
	c.enqueue(&event.BehaviorPayload{
		Action: event.ActionResize,
		Value:  map[string]float64{"width": sig.Width, "height": sig.Height},
	})
}

func (c *Capture) admitNavigate(sig NavigateSignal) {
	path := sig.Path
	if path == "" {
		path = util.ExtractURLPath(sig.URL)
	}
	c.enqueue(&event.BehaviorPayload{
		Action: event.ActionNavigate,
		Value: map[string]string{
			"url":    sig.URL,
			"path":   path,
			"search": sig.Search,
			"hash":   sig.Hash,
			"origin": util.ExtractOrigin(sig.URL),
		},
	})
}

func (c *Capture) admitVisibility(sig VisibilitySignal) {
	c.enqueue(&event.BehaviorPayload{
		Action: event.ActionVisibility,
		Value:  sig.State,
	})
}

func (c *Capture) inputPayload(action event.Action, sig InputSignal) *event.BehaviorPayload {
	payload := &event.BehaviorPayload{
		Action: action,
		Target: EncodeTargetPath(sig.Frames),
	}
	if c.maskInputs && IsSensitiveInput(sig.InputType, sig.Name, sig.ID) {
		payload.Value = event.MaskedValue
	} else {
		payload.Value = event.InputSummary{
			Length:   len(sig.Value),
			IsEmpty:  sig.Value == "",
			HasValue: sig.Value != "",
		}
	}
	return payload
}

// scheduleInput debounces input events: only the most recent value
// within the debounce window is ultimately enqueued.
func (c *Capture) scheduleInput(action event.Action, sig InputSignal) {
	if c.isBlocked(sig.Frames) {
		return
	}
	e := event.Event{
		Envelope: event.NewEnvelope(c.appID, c.sessionID, c.userID, event.KindBehavior, c.now()),
		Payload:  c.inputPayload(action, sig),
	}
	c.pendingMu.Lock()
	c.pendingInput = &e
	c.pendingMu.Unlock()
	c.inputDebounce.Trigger()
}

// admitInputNow enqueues a change event immediately (change has no
// debounce policy).
func (c *Capture) admitInputNow(action event.Action, sig InputSignal) {
	if c.isBlocked(sig.Frames) {
		return
	}
	c.enqueue(c.inputPayload(action, sig))
}

func (c *Capture) enqueue(payload *event.BehaviorPayload) {
	e := event.Event{
		Envelope: event.NewEnvelope(c.appID, c.sessionID, c.userID, event.KindBehavior, c.now()),
		Payload:  payload,
	}
	c.buf.Enqueue(e)
}
