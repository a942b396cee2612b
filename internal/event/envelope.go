// envelope.go — Common envelope carried by every captured record.
package event

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Kind discriminates the four event payload shapes. The set is closed:
// callers should switch exhaustively on Kind rather than type-asserting
// Payload against an open set of possibilities.
type Kind string

const (
	KindPerformance Kind = "performance"
	KindError       Kind = "error"
	KindBehavior    Kind = "behavior"
	KindReplay      Kind = "replay"
)

// DeviceInfo captures the ambient device/browser context attached to every event.
type DeviceInfo struct {
	Screen     string `json:"screen,omitempty"`
	Viewport   string `json:"viewport,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Language   string `json:"language,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Connection string `json:"connection,omitempty"`
}

// Envelope holds the fields common to every event regardless of Kind.
type Envelope struct {
	EventID    string     `json:"eventId"`
	AppID      string     `json:"appId"`
	SessionID  string     `json:"sessionId"`
	UserID     string     `json:"userId,omitempty"`
	Timestamp  int64      `json:"timestamp"` // wall-clock ms at capture
	PageURL    string     `json:"pageUrl"`
	UserAgent  string     `json:"userAgent"`
	DeviceInfo DeviceInfo `json:"deviceInfo"`
	Type       Kind       `json:"type"`
}

// Event is one captured record: the common envelope plus a kind-specific payload.
// Payload is always one of *ErrorPayload, *PerformancePayload, *BehaviorPayload,
// or *ReplayPayload — Type names which one. Treat the pair as a closed sum type.
type Event struct {
	Envelope
	Payload any `json:"payload"`
}

// NewEventID mints a fresh event identifier. Events are unique per session;
// replaying the same eventId into the pipeline a second time is a protocol error.
func NewEventID() string {
	return uuid.NewString()
}

// NewEnvelope builds an envelope with a fresh eventId and the given kind.
func NewEnvelope(appID, sessionID, userID string, kind Kind, nowMS int64) Envelope {
	return Envelope{
		EventID:   NewEventID(),
		AppID:     appID,
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: nowMS,
		Type:      kind,
	}
}

// Clone returns a copy of the event with an independent envelope. The
// Payload is not deep-copied: the clone shares e's Payload value.
func (e Event) Clone() Event {
	raw, err := json.Marshal(e)
	if err != nil {
		return e
	}
	var out Event
	if err := json.Unmarshal(raw, &out); err != nil {
		return e
	}
	// json round-trip loses the concrete Payload type (it decodes to
	// map[string]any); callers that need the typed payload back should
	// clone at the payload level instead. Clone is primarily used where
	// only the envelope needs independence (redaction writes new payloads).
	out.Payload = e.Payload
	return out
}

// ApproxSize estimates the serialized wire size of the event in bytes.
// Used by the spill store to bound itself by cumulative byte size as
// well as entry count.
func (e Event) ApproxSize() int {
	raw, err := json.Marshal(e)
	if err != nil {
		return 0
	}
	return len(raw)
}
