// recorder.go — Replay recorder: state machine, snapshot + deltas.
//
// The recorder never touches a document; it reacts to signals a host
// environment forwards once mutation-observer and intersection-observer
// equivalents are both available (the feature gate), and otherwise
// never starts. Deltas are bounded to MaxRecords by oldest-drop; the
// 60-second span budget, once exceeded, stops recording outright
// rather than dropping records, since a recording that has run that
// long is no longer useful as a short bug-repro clip.
package replay

import (
	"context"
	"sync"
	"time"

	"github.com/monitorcore/monitorcore/internal/bridge"
	"github.com/monitorcore/monitorcore/internal/capture/behaviorcap"
	"github.com/monitorcore/monitorcore/internal/event"
	"github.com/monitorcore/monitorcore/internal/logx"
	"github.com/monitorcore/monitorcore/internal/queue"
	"github.com/monitorcore/monitorcore/internal/util"
)

// MaxRecords bounds the per-recording record buffer.
const MaxRecords = 1000

// MaxSpan bounds the time between the first record and any later
// record admission.
const MaxSpan = 60 * time.Second

// Sources bundles the bridge feeds the recorder listens to once
// recording starts. Interaction signal types are shared with behavior
// capture: the same click/input/scroll/... shapes drive both.
type Sources struct {
	Mutation     bridge.Source[MutationSignal]
	Intersection bridge.Source[IntersectionSignal]
	Click        bridge.Source[behaviorcap.PointerSignal]
	Input        bridge.Source[behaviorcap.InputSignal]
	Change       bridge.Source[behaviorcap.InputSignal]
	Focus        bridge.Source[behaviorcap.PointerSignal]
	Blur         bridge.Source[behaviorcap.PointerSignal]
	Scroll       bridge.Source[behaviorcap.ScrollSignal]
	MouseMove    bridge.Source[behaviorcap.MouseMoveSignal]
	Resize       bridge.Source[behaviorcap.ResizeSignal]
	Visibility   bridge.Source[behaviorcap.VisibilitySignal]
}

// FeatureGate reports whether both observer-equivalents the host
// environment would need are available. A Recorder built with a false
// gate never leaves StateIdle.
type FeatureGate struct {
	MutationObserver     bool
	IntersectionObserver bool
}

// Available reports whether recording may start at all.
func (g FeatureGate) Available() bool {
	return g.MutationObserver && g.IntersectionObserver
}

// Recorder owns one replay recording's state, buffer, and listener
// lifecycle.
type Recorder struct {
	gate FeatureGate
	log  *logx.Logger
	now  func() int64

	mu             sync.Mutex
	state          State
	records        *queue.Queue[event.ReplayRecord]
	firstRecordMS  int64
	hasFirstRecord bool

	scrollThrottle    *leadingThrottle
	mousemoveThrottle *leadingThrottle
	resizeThrottle    *leadingThrottle

	maskInputs bool

	cancel context.CancelFunc
}

// SetMaskSensitiveData toggles whether sensitive input/change values
// recorded into the replay stream are masked to event.MaskedValue.
// Defaults to enabled; set to false only when
// config.Privacy.MaskSensitiveData is explicitly disabled.
func (r *Recorder) SetMaskSensitiveData(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maskInputs = enabled
}

func (r *Recorder) masking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maskInputs
}

// New builds a Recorder. gate decides whether Start is ever allowed to
// proceed.
func New(gate FeatureGate, log *logx.Logger) *Recorder {
	if log == nil {
		log = logx.New("[monitorcore]", false)
	}
	return &Recorder{
		gate:              gate,
		log:               log,
		now:               func() int64 { return time.Now().UnixMilli() },
		state:             StateIdle,
		records:           queue.New[event.ReplayRecord](MaxRecords),
		scrollThrottle:    newLeadingThrottle(scrollRecordThrottle),
		mousemoveThrottle: newLeadingThrottle(mousemoveRecordThrottle),
		resizeThrottle:    newLeadingThrottle(resizeRecordThrottle),
		maskInputs:        true,
	}
}

// State returns the recorder's current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start transitions idle -> recording, emits the initial snapshot as
// the first record, and subscribes to every non-nil source in src. A
// no-op (logged at warning) if the feature gate is not satisfied or the
// recorder is not idle.
func (r *Recorder) Start(ctx context.Context, root SourceNode, viewportW, viewportH int, url, doctype string, src Sources) {
	r.mu.Lock()
	if !r.gate.Available() {
		r.mu.Unlock()
		r.log.Warnf("replay: feature gate not satisfied, recording not started")
		return
	}
	if !canTransition(r.state, StateRecording) {
		r.mu.Unlock()
		r.log.Warnf("replay: cannot start recording from state %s", r.state)
		return
	}
	r.state = StateRecording
	r.mu.Unlock()

	snap := Snapshot{Tree: EncodeSnapshot(root), URL: url, Doctype: doctype}
	snap.Viewport.Width = viewportW
	snap.Viewport.Height = viewportH
	r.admit(ReplayEntry{Type: event.ReplayDOM, Data: snap})

	ctx, r.cancel = context.WithCancel(ctx)
	r.subscribe(ctx, src)
}

// Pause suspends record admission but leaves listeners installed.
func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !canTransition(r.state, StatePaused) {
		r.log.Warnf("replay: cannot pause from state %s", r.state)
		return
	}
	r.state = StatePaused
}

// Resume returns from paused to recording.
func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !canTransition(r.state, StateRecording) {
		r.log.Warnf("replay: cannot resume from state %s", r.state)
		return
	}
	r.state = StateRecording
}

// Stop ends recording, disconnects all listeners, and resets
// accumulated records.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.state != StateRecording && r.state != StatePaused {
		r.mu.Unlock()
		return
	}
	r.state = StateStopped
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	r.mu.Lock()
	r.records = queue.New[event.ReplayRecord](MaxRecords)
	r.hasFirstRecord = false
	r.mu.Unlock()
}

// Snapshot returns the records accumulated so far without draining
// them, for use by an in-flight unload export.
func (r *Recorder) Snapshot() []event.ReplayRecord {
	r.mu.Lock()
	records := r.records
	r.mu.Unlock()
	return records.Snapshot()
}

// Drain removes and returns all accumulated records.
func (r *Recorder) Drain() []event.ReplayRecord {
	r.mu.Lock()
	records := r.records
	r.mu.Unlock()
	return records.Drain(0)
}

// ReplayEntry is the (type, data) pair admit wraps into a timestamped
// event.ReplayRecord.
type ReplayEntry struct {
	Type event.ReplayRecordType
	Data any
}

func (r *Recorder) admit(entry ReplayEntry) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return
	}
	now := r.now()
	if !r.hasFirstRecord {
		r.firstRecordMS = now
		r.hasFirstRecord = true
	} else if time.Duration(now-r.firstRecordMS)*time.Millisecond > MaxSpan {
		r.state = StateStopped
		r.mu.Unlock()
		r.log.Warnf("replay: span budget exceeded, recording stopped")
		if r.cancel != nil {
			r.cancel()
		}
		return
	}
	records := r.records
	r.mu.Unlock()

	records.Enqueue(event.ReplayRecord{
		Timestamp: now,
		Type:      entry.Type,
		Data:      entry.Data,
	})
}

func (r *Recorder) subscribe(ctx context.Context, src Sources) {
	if src.Mutation != nil {
		util.SafeGo(func() {
			for sig := range src.Mutation.Listen(ctx) {
				r.admit(ReplayEntry{Type: event.ReplayMutation, Data: map[string]any{
					"target":        EncodePath(sig.Target),
					"added":         encodeNodes(sig.Added),
					"removed":       encodeNodes(sig.Removed),
					"attributeName": sig.AttributeName,
					"oldValue":      sig.OldValue,
				}})
			}
		})
	}
	if src.Intersection != nil {
		util.SafeGo(func() {
			for sig := range src.Intersection.Listen(ctx) {
				r.admit(ReplayEntry{Type: event.ReplayIntersection, Data: map[string]any{
					"target":         EncodePath(sig.Target),
					"isIntersecting": sig.IsIntersecting,
				}})
			}
		})
	}
	if src.Click != nil {
		util.SafeGo(func() {
			for sig := range src.Click.Listen(ctx) {
				r.admit(ReplayEntry{Type: event.ReplayInput, Data: pointerData("click", sig)})
			}
		})
	}
	if src.Focus != nil {
		util.SafeGo(func() {
			for sig := range src.Focus.Listen(ctx) {
				r.admit(ReplayEntry{Type: event.ReplayInput, Data: pointerData("focus", sig)})
			}
		})
	}
	if src.Blur != nil {
		util.SafeGo(func() {
			for sig := range src.Blur.Listen(ctx) {
				r.admit(ReplayEntry{Type: event.ReplayInput, Data: pointerData("blur", sig)})
			}
		})
	}
	if src.Input != nil {
		util.SafeGo(func() {
			for sig := range src.Input.Listen(ctx) {
				r.admit(ReplayEntry{Type: event.ReplayInput, Data: inputData("input", sig, r.masking())})
			}
		})
	}
	if src.Change != nil {
		util.SafeGo(func() {
			for sig := range src.Change.Listen(ctx) {
				r.admit(ReplayEntry{Type: event.ReplayInput, Data: inputData("change", sig, r.masking())})
			}
		})
	}
	if src.Scroll != nil {
		util.SafeGo(func() {
			for sig := range src.Scroll.Listen(ctx) {
				if r.scrollThrottle.Allow() {
					r.admit(ReplayEntry{Type: event.ReplayScroll, Data: map[string]float64{"x": sig.X, "y": sig.Y}})
				}
			}
		})
	}
	if src.MouseMove != nil {
		util.SafeGo(func() {
			for sig := range src.MouseMove.Listen(ctx) {
				if r.mousemoveThrottle.Allow() {
					r.admit(ReplayEntry{Type: event.ReplayInput, Data: map[string]any{
						"action": "mousemove", "x": sig.X, "y": sig.Y,
					}})
				}
			}
		})
	}
	if src.Resize != nil {
		util.SafeGo(func() {
			for sig := range src.Resize.Listen(ctx) {
				if r.resizeThrottle.Allow() {
					r.admit(ReplayEntry{Type: event.ReplayResize, Data: map[string]float64{
						"width": sig.Width, "height": sig.Height,
					}})
				}
			}
		})
	}
	if src.Visibility != nil {
		util.SafeGo(func() {
			for sig := range src.Visibility.Listen(ctx) {
				r.admit(ReplayEntry{Type: event.ReplayInput, Data: map[string]any{
					"action": "visibility", "state": sig.State,
				}})
			}
		})
	}
}

func pointerData(action string, sig behaviorcap.PointerSignal) map[string]any {
	data := map[string]any{
		"action": action,
		"target": behaviorcap.EncodeTargetPath(sig.Frames),
	}
	if sig.HasXY {
		data["x"] = sig.X
		data["y"] = sig.Y
	}
	return data
}

func inputData(action string, sig behaviorcap.InputSignal, mask bool) map[string]any {
	data := map[string]any{
		"action": action,
		"target": behaviorcap.EncodeTargetPath(sig.Frames),
	}
	if mask && behaviorcap.IsSensitiveInput(sig.InputType, sig.Name, sig.ID) {
		data["value"] = event.MaskedValue
	} else {
		data["value"] = event.InputSummary{
			Length:   len(sig.Value),
			IsEmpty:  sig.Value == "",
			HasValue: sig.Value != "",
		}
	}
	return data
}

func encodeNodes(nodes []SourceNode) []SnapshotNode {
	out := make([]SnapshotNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, EncodeSnapshot(n))
	}
	return out
}
