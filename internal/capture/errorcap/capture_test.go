package errorcap

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/monitorcore/monitorcore/internal/bridge"
	"github.com/monitorcore/monitorcore/internal/event"
	"github.com/monitorcore/monitorcore/internal/redaction"
)

func newTestCapture(onAdmit func(event.Event)) *Capture {
	c := New("app1", "sess1", "", redaction.NewEngine(), nil, onAdmit)
	c.now = func() int64 { return 1000 }
	return c
}

func TestDuplicateFingerprintIsDropped(t *testing.T) {
	t.Parallel()
	src := bridge.NewChan[RuntimeErrorSignal](4)
	var admitted []event.Event
	c := newTestCapture(func(e event.Event) { admitted = append(admitted, e) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx, Sources{RuntimeErrors: src})

	sig := RuntimeErrorSignal{Message: "Boom", FileName: "app.js", Line: 10, Column: 3}
	src.C <- sig
	src.C <- sig
	time.Sleep(50 * time.Millisecond)

	if len(admitted) != 1 {
		t.Fatalf("admitted %d events, want 1 (second is a duplicate fingerprint)", len(admitted))
	}
	payload, ok := admitted[0].Payload.(*event.ErrorPayload)
	if !ok {
		t.Fatalf("payload type = %T, want *event.ErrorPayload", admitted[0].Payload)
	}
	if payload.Message != "Boom" || payload.ErrorType != event.ErrorTypeJavaScript {
		t.Fatalf("payload = %+v, want message=Boom type=javascript", payload)
	}
	if payload.Severity != event.SeverityLow {
		t.Fatalf("severity = %v, want low ('Boom' does not match any keyword tier)", payload.Severity)
	}
}

func TestSeverityDerivationKeywordCascade(t *testing.T) {
	t.Parallel()
	tests := []struct {
		message string
		want    event.Severity
	}{
		{"system crash detected", event.SeverityCritical},
		{"request failed", event.SeverityHigh},
		{"deprecated API used", event.SeverityMedium},
		{"something odd happened", event.SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			t.Parallel()
			if got := deriveSeverity(tt.message); got != tt.want {
				t.Errorf("deriveSeverity(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestNetworkErrorSeverity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		thrown bool
		want   event.Severity
	}{
		{"thrown", 0, true, event.SeverityHigh},
		{"server error", 503, false, event.SeverityHigh},
		{"client error", 404, false, event.SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := networkSeverity(tt.status, tt.thrown); got != tt.want {
				t.Errorf("networkSeverity(%d, %v) = %v, want %v", tt.status, tt.thrown, got, tt.want)
			}
		})
	}
}

func TestRejectionWithNonErrorReasonUsesCoercedMessage(t *testing.T) {
	t.Parallel()
	src := bridge.NewChan[RejectionSignal](1)
	var admitted []event.Event
	c := newTestCapture(func(e event.Event) { admitted = append(admitted, e) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx, Sources{Rejections: src})

	src.C <- RejectionSignal{Message: `{"code":42}`}
	time.Sleep(50 * time.Millisecond)

	if len(admitted) != 1 {
		t.Fatalf("admitted %d events, want 1", len(admitted))
	}
	payload := admitted[0].Payload.(*event.ErrorPayload)
	if payload.ErrorType != event.ErrorTypePromise || payload.Severity != event.SeverityHigh {
		t.Fatalf("payload = %+v, want type=promise severity=high", payload)
	}
}

func TestBufferOverflowDropsOldest(t *testing.T) {
	t.Parallel()
	c := newTestCapture(nil)
	for i := 0; i < BufferCapacity+10; i++ {
		c.admitResourceError(ResourceErrorSignal{TagName: "img", URL: "https://example.com/img" + strconv.Itoa(i)})
	}
	drained := c.Drain(0)
	if len(drained) != BufferCapacity {
		t.Fatalf("drained %d events, want %d (buffer capacity)", len(drained), BufferCapacity)
	}
}

func TestAllowedDomainsFiltersNetworkAndResourceErrors(t *testing.T) {
	t.Parallel()
	c := newTestCapture(nil)
	c.SetAllowedDomains([]string{"example.com"})

	c.admitNetworkError(NetworkErrorSignal{Method: "GET", URL: "https://cdn.other.test/api", Status: 500})
	c.admitResourceError(ResourceErrorSignal{TagName: "img", URL: "https://cdn.other.test/img.png"})
	if drained := c.Drain(0); len(drained) != 0 {
		t.Fatalf("drained %d events from a disallowed origin, want 0", len(drained))
	}

	c.admitNetworkError(NetworkErrorSignal{Method: "GET", URL: "https://api.example.com/widgets", Status: 500})
	drained := c.Drain(0)
	if len(drained) != 1 {
		t.Fatalf("drained %d events from an allowed origin, want 1", len(drained))
	}
}

func TestAllowedDomainsEmptyAllowsEverything(t *testing.T) {
	t.Parallel()
	c := newTestCapture(nil)
	c.admitNetworkError(NetworkErrorSignal{Method: "GET", URL: "https://anything.test/x", Status: 500})
	if drained := c.Drain(0); len(drained) != 1 {
		t.Fatalf("drained %d events with no AllowedDomains filter set, want 1", len(drained))
	}
}

func TestLongMessageTruncatedToMaxLen(t *testing.T) {
	t.Parallel()
	c := newTestCapture(nil)
	long := ""
	for i := 0; i < 1500; i++ {
		long += "x"
	}
	c.admitJS(RuntimeErrorSignal{Message: long, FileName: "a.js", Line: 1, Column: 1})
	drained := c.Drain(0)
	if len(drained) != 1 {
		t.Fatalf("drained %d events, want 1", len(drained))
	}
	payload := drained[0].Payload.(*event.ErrorPayload)
	if len(payload.Message) != redaction.MaxMessageLen {
		t.Fatalf("message length = %d, want %d", len(payload.Message), redaction.MaxMessageLen)
	}
}
