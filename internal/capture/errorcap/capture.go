// capture.go — Error capture component.
//
// Subscribes to the four error-producing bridge sources, derives
// severity and a stable fingerprint per event, drops duplicate
// fingerprints within the session, scrubs messages/stacks/context
// through the redaction engine, and holds admitted events in a
// 100-entry oldest-drop buffer until the orchestrator drains them.
package errorcap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/monitorcore/monitorcore/internal/bridge"
	"github.com/monitorcore/monitorcore/internal/event"
	"github.com/monitorcore/monitorcore/internal/fingerprint"
	"github.com/monitorcore/monitorcore/internal/logx"
	"github.com/monitorcore/monitorcore/internal/queue"
	"github.com/monitorcore/monitorcore/internal/redaction"
	"github.com/monitorcore/monitorcore/internal/util"
)

// BufferCapacity bounds the capture-side buffer; oldest events are
// dropped and a warning logged on overflow.
const BufferCapacity = 100

// Sources bundles the bridge feeds this component listens to. Any
// field left nil is simply never read from.
type Sources struct {
	RuntimeErrors  bridge.Source[RuntimeErrorSignal]
	Rejections     bridge.Source[RejectionSignal]
	ResourceErrors bridge.Source[ResourceErrorSignal]
	NetworkErrors  bridge.Source[NetworkErrorSignal]
}

// Capture owns the buffer, dedup set, and redaction engine for one session.
type Capture struct {
	appID, sessionID, userID string

	buf    *queue.Queue[event.Event]
	dedup  *fingerprint.Dedup
	redact *redaction.Engine
	log    *logx.Logger

	cancel         context.CancelFunc
	onAdmit        func(event.Event)
	now            func() int64
	allowedDomains map[string]bool
}

// SetAllowedDomains restricts network/resource error capture to URLs
// whose origin matches one of domains (case-insensitive); a nil or
// empty list disables the filter and every origin is captured.
func (c *Capture) SetAllowedDomains(domains []string) {
	if len(domains) == 0 {
		c.allowedDomains = nil
		return
	}
	allowed := make(map[string]bool, len(domains))
	for _, d := range domains {
		allowed[strings.ToLower(d)] = true
	}
	c.allowedDomains = allowed
}

// domainAllowed reports whether rawURL's origin passes the allowed-domains
// filter. An empty filter allows everything.
func (c *Capture) domainAllowed(rawURL string) bool {
	if len(c.allowedDomains) == 0 {
		return true
	}
	origin := util.ExtractOrigin(rawURL)
	for domain := range c.allowedDomains {
		if strings.HasSuffix(strings.ToLower(origin), domain) {
			return true
		}
	}
	return false
}

// New builds a Capture for one session. onAdmit, if non-nil, is called
// synchronously whenever an event is admitted to the buffer — the
// orchestrator uses it to drive the debounced-immediate flush trigger.
func New(appID, sessionID, userID string, redact *redaction.Engine, log *logx.Logger, onAdmit func(event.Event)) *Capture {
	if log == nil {
		log = logx.New("[monitorcore]", false)
	}
	c := &Capture{
		appID:     appID,
		sessionID: sessionID,
		userID:    userID,
		buf:       queue.New[event.Event](BufferCapacity),
		dedup:     fingerprint.NewDedup(),
		redact:    redact,
		log:       log,
		onAdmit:   onAdmit,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
	c.buf.OnDrop(func(dropped event.Event) {
		log.Warnf("errorcap: buffer overflow, dropped event %s", dropped.EventID)
	})
	return c
}

// Start subscribes to every non-nil source in src until ctx is done or
// Stop is called.
func (c *Capture) Start(ctx context.Context, src Sources) {
	ctx, c.cancel = context.WithCancel(ctx)

	if src.RuntimeErrors != nil {
		util.SafeGo(func() { c.consumeRuntimeErrors(ctx, src.RuntimeErrors) })
	}
	if src.Rejections != nil {
		util.SafeGo(func() { c.consumeRejections(ctx, src.Rejections) })
	}
	if src.ResourceErrors != nil {
		util.SafeGo(func() { c.consumeResourceErrors(ctx, src.ResourceErrors) })
	}
	if src.NetworkErrors != nil {
		util.SafeGo(func() { c.consumeNetworkErrors(ctx, src.NetworkErrors) })
	}
}

// Stop disconnects every source subscription started by Start.
func (c *Capture) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Drain removes and returns up to n buffered events (all, if n <= 0).
func (c *Capture) Drain(n int) []event.Event {
	return c.buf.Drain(n)
}

func (c *Capture) consumeRuntimeErrors(ctx context.Context, src bridge.Source[RuntimeErrorSignal]) {
	for sig := range src.Listen(ctx) {
		c.admitJS(sig)
	}
}

func (c *Capture) consumeRejections(ctx context.Context, src bridge.Source[RejectionSignal]) {
	for sig := range src.Listen(ctx) {
		c.admitRejection(sig)
	}
}

func (c *Capture) consumeResourceErrors(ctx context.Context, src bridge.Source[ResourceErrorSignal]) {
	for sig := range src.Listen(ctx) {
		c.admitResourceError(sig)
	}
}

func (c *Capture) consumeNetworkErrors(ctx context.Context, src bridge.Source[NetworkErrorSignal]) {
	for sig := range src.Listen(ctx) {
		c.admitNetworkError(sig)
	}
}

func (c *Capture) admitJS(sig RuntimeErrorSignal) {
	fp := fingerprint.Compute(sig.Message, sig.FileName, sig.Line, sig.Column)
	if !c.dedup.Admit(fp) {
		return
	}
	payload := &event.ErrorPayload{
		ErrorType:    event.ErrorTypeJavaScript,
		Message:      c.redact.Scrub(sig.Message),
		StackTrace:   c.redact.ScrubStack(sig.Stack),
		FileName:     sig.FileName,
		LineNumber:   sig.Line,
		ColumnNumber: sig.Column,
		Severity:     deriveSeverity(sig.Message),
		Fingerprint:  fp,
	}
	c.enqueue(payload)
}

func (c *Capture) admitRejection(sig RejectionSignal) {
	fp := fingerprint.Compute(sig.Message, "", 0, 0)
	if !c.dedup.Admit(fp) {
		return
	}
	payload := &event.ErrorPayload{
		ErrorType:   event.ErrorTypePromise,
		Message:     c.redact.Scrub(sig.Message),
		StackTrace:  c.redact.ScrubStack(sig.Stack),
		Severity:    event.SeverityHigh,
		Fingerprint: fp,
	}
	c.enqueue(payload)
}

func (c *Capture) admitResourceError(sig ResourceErrorSignal) {
	if !c.domainAllowed(sig.URL) {
		return
	}
	message := fmt.Sprintf("failed to load %s %s", sig.TagName, sig.URL)
	fp := fingerprint.Compute(message, sig.URL, 0, 0)
	if !c.dedup.Admit(fp) {
		return
	}
	payload := &event.ErrorPayload{
		ErrorType:   event.ErrorTypeNetwork,
		Message:     c.redact.Scrub(message),
		Severity:    event.SeverityMedium,
		Fingerprint: fp,
		Context: map[string]any{
			"tagName": sig.TagName,
			"url":     sig.URL,
		},
	}
	c.enqueue(payload)
}

func (c *Capture) admitNetworkError(sig NetworkErrorSignal) {
	if !c.domainAllowed(sig.URL) {
		return
	}
	message := fmt.Sprintf("%s %s failed", sig.Method, sig.URL)
	fp := fingerprint.Compute(message, sig.URL, sig.Status, 0)
	if !c.dedup.Admit(fp) {
		return
	}
	ctx := map[string]any{
		"url":             sig.URL,
		"method":          sig.Method,
		"status":          sig.Status,
		"durationMs":      sig.DurationMS,
		"requestHeaders":  sig.RequestHeaders,
		"responseHeaders": sig.ResponseHeaders,
	}
	payload := &event.ErrorPayload{
		ErrorType:   event.ErrorTypeNetwork,
		Message:     c.redact.Scrub(message),
		Severity:    networkSeverity(sig.Status, sig.Thrown),
		Fingerprint: fp,
		Context:     c.redact.ScrubContext(ctx),
	}
	c.enqueue(payload)
}

func (c *Capture) enqueue(payload *event.ErrorPayload) {
	e := event.Event{
		Envelope: event.NewEnvelope(c.appID, c.sessionID, c.userID, event.KindError, c.now()),
		Payload:  payload,
	}
	c.buf.Enqueue(e)
	if c.onAdmit != nil {
		c.onAdmit(e)
	}
}
