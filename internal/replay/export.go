// export.go — Wire-envelope export of a replay recording.
//
// Resolves the open question of whether an unload-time beacon should
// carry the current (possibly in-flight) replay buffer: it does,
// truncated to fit the beacon's practical size ceiling, rather than
// discarding a partial recording outright.
package replay

import (
	"encoding/json"

	"github.com/monitorcore/monitorcore/internal/event"
)

// BeaconSizeLimit is the practical upper bound on a beacon request
// body; most browsers cap sendBeacon payloads around 64 KiB.
const BeaconSizeLimit = 64 * 1024

// Exporter builds a replay event envelope from a set of accumulated
// records, truncating from the tail when the serialized size would
// exceed BeaconSizeLimit. The fullSnapshot record (always first) is
// never dropped; truncation removes the most recent deltas first since
// the snapshot plus early deltas reconstructs more of the session than
// the tail does.
type Exporter struct {
	appID, sessionID, userID string
	now                      func() int64
}

// NewExporter builds an Exporter for one session.
func NewExporter(appID, sessionID, userID string, now func() int64) *Exporter {
	if now == nil {
		now = func() int64 { return 0 }
	}
	return &Exporter{appID: appID, sessionID: sessionID, userID: userID, now: now}
}

// Export builds a single replay event.Event from records, fitting it
// under BeaconSizeLimit by dropping trailing (most recent) delta
// records, keeping the leading fullSnapshot record always.
func (x *Exporter) Export(records []event.ReplayRecord) event.Event {
	fitted := fitUnderLimit(records, BeaconSizeLimit)
	return event.Event{
		Envelope: event.NewEnvelope(x.appID, x.sessionID, x.userID, event.KindReplay, x.now()),
		Payload:  &event.ReplayPayload{Events: fitted},
	}
}

func fitUnderLimit(records []event.ReplayRecord, limit int) []event.ReplayRecord {
	if len(records) == 0 {
		return records
	}
	for n := len(records); n >= 1; n-- {
		candidate := records[:n]
		raw, err := json.Marshal(candidate)
		if err != nil {
			continue
		}
		if len(raw) <= limit || n == 1 {
			return candidate
		}
	}
	return records[:1]
}
