// api.go — Public surface consumed by a façade: track/identity/manual
// capture, replay control, flush/status, and the plugin/event-emitter
// interface.
package orchestrator

import (
	"context"

	"github.com/monitorcore/monitorcore/internal/event"
	"github.com/monitorcore/monitorcore/internal/fingerprint"
	"github.com/monitorcore/monitorcore/internal/plugin"
	"github.com/monitorcore/monitorcore/internal/replay"
)

// Track admits a custom behavior event carrying name/props and emits
// the corresponding "track" bus event, per §4.10's "a track event for
// each custom event admitted".
func (c *Core) Track(name string, props map[string]any) {
	c.mu.Lock()
	sessionID, userID := c.sessionID, c.userID
	c.mu.Unlock()
	payload := &event.BehaviorPayload{
		Action:  event.ActionCustom,
		Target:  name,
		Value:   props,
		Context: c.redact.ScrubContext(props),
	}
	e := event.Event{
		Envelope: event.NewEnvelope(c.cfg.AppID, sessionID, userID, event.KindBehavior, c.now()),
		Payload:  payload,
	}
	c.admit(e)
	c.bus.Emit("track", map[string]any{"name": name, "props": props})
}

// SetUser persists id as the session's user id. props is accepted for
// façade-surface symmetry but, like the teacher's identity stores,
// nothing downstream of this core attaches arbitrary user traits today.
func (c *Core) SetUser(ctx context.Context, id string, props map[string]any) error {
	if err := c.userIdent.SetUserID(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
	return nil
}

// ClearUser removes the persisted user id.
func (c *Core) ClearUser(ctx context.Context) error {
	if err := c.userIdent.Clear(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.userID = ""
	c.mu.Unlock()
	return nil
}

// CaptureException admits a custom error event for err, scrubbed and
// fingerprinted the same way as every other error source. sev defaults
// to SeverityHigh when empty, matching an explicitly-reported exception
// being treated as more urgent than an unclassified one.
func (c *Core) CaptureException(err error, ctx map[string]any, sev event.Severity) {
	if err == nil {
		return
	}
	if sev == "" {
		sev = event.SeverityHigh
	}
	c.captureError(event.ErrorTypeCustom, err.Error(), sev, ctx)
}

// CaptureMessage admits a custom error event for a free-text message at
// the given severity (SeverityLow if empty).
func (c *Core) CaptureMessage(msg string, level event.Severity, ctx map[string]any) {
	if level == "" {
		level = event.SeverityLow
	}
	c.captureError(event.ErrorTypeCustom, msg, level, ctx)
}

func (c *Core) captureError(errType event.ErrorType, message string, sev event.Severity, ctxMap map[string]any) {
	fp := fingerprint.Compute(message, "", 0, 0)
	if !c.dedup.Admit(fp) {
		return
	}
	payload := &event.ErrorPayload{
		ErrorType:   errType,
		Message:     c.redact.Scrub(message),
		Severity:    sev,
		Fingerprint: fp,
		Context:     c.redact.ScrubContext(ctxMap),
	}
	c.mu.Lock()
	sessionID, userID := c.sessionID, c.userID
	c.mu.Unlock()
	e := event.Event{
		Envelope: event.NewEnvelope(c.cfg.AppID, sessionID, userID, event.KindError, c.now()),
		Payload:  payload,
	}
	c.admit(e)
	c.policy.NotifyError()
}

// Mark delegates to the performance capture component's named timestamp mark.
func (c *Core) Mark(name string) {
	c.perf.Mark(name)
}

// Measure delegates to the performance capture component's named duration measure.
func (c *Core) Measure(name, start, end string) {
	c.perf.Measure(name, start, end)
}

// StartReplay begins a replay recording from the given initial DOM
// snapshot and subscribes to every non-nil source in src. A no-op if
// the feature gate is unsatisfied or a recording is already active.
func (c *Core) StartReplay(ctx context.Context, snap ReplaySnapshotSource, src replay.Sources) {
	if !c.cfg.Features.Replay {
		return
	}
	c.replay.Start(ctx, snap.Root, snap.ViewportW, snap.ViewportH, snap.URL, snap.Doctype, src)
}

// StopReplay drains and admits whatever records have accumulated since
// the last drain, then ends the current recording. Records are
// captured before Stop resets the recorder's internal buffer, so a
// recording stopped through this call is never silently dropped.
func (c *Core) StopReplay() {
	c.drainReplay()
	c.replay.Stop()
}

// PauseReplay suspends record admission without disconnecting listeners.
func (c *Core) PauseReplay() {
	c.replay.Pause()
}

// ResumeReplay resumes record admission after a pause.
func (c *Core) ResumeReplay() {
	c.replay.Resume()
}

// Status summarizes the core's current state for the façade's getStatus().
type Status struct {
	Running     bool
	SessionID   string
	UserID      string
	ReplayState replay.State
	QueueSize   int
}

// GetStatus reports the core's current running/identity/queue state.
func (c *Core) GetStatus() Status {
	c.mu.Lock()
	running := c.running
	sessionID := c.sessionID
	userID := c.userID
	c.mu.Unlock()
	return Status{
		Running:     running,
		SessionID:   sessionID,
		UserID:      userID,
		ReplayState: c.replay.State(),
		QueueSize:   c.queue.Size(),
	}
}

// Use installs p against this core, exposed as the plugin.Core surface.
func (c *Core) Use(p plugin.Plugin) {
	c.plugins.Use(p, c)
}

// Unuse removes the named plugin.
func (c *Core) Unuse(name string) {
	c.plugins.Unuse(name)
}

// On subscribes fn to evt (e.g. "start", "stop", "track"). Satisfies plugin.Core.
func (c *Core) On(evt string, fn plugin.Handler) {
	c.bus.Subscribe(evt, fn)
}

// Off unsubscribes fn from evt. Satisfies plugin.Core.
func (c *Core) Off(evt string, fn plugin.Handler) {
	c.bus.Unsubscribe(evt, fn)
}

// OffAll unsubscribes every handler from evt, for the façade's
// off(evt) call with no fn argument.
func (c *Core) OffAll(evt string) {
	c.bus.UnsubscribeAll(evt)
}

