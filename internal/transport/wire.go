// wire.go — HTTP wire format shared by the batched sender and the beacon sender.
package transport

import "github.com/monitorcore/monitorcore/internal/event"

// SDKVersion is reported on every outgoing batch and the X-SDK-Version header.
const SDKVersion = "1.0.0"

// Batch is the JSON body of a POST to the collector endpoint, and the
// body of a beacon send.
type Batch struct {
	Events     []event.Event `json:"events"`
	Timestamp  int64         `json:"timestamp"`
	SDKVersion string        `json:"sdk_version"`
}

// NewBatch wraps events in the wire envelope.
func NewBatch(events []event.Event, nowMS int64) Batch {
	return Batch{Events: events, Timestamp: nowMS, SDKVersion: SDKVersion}
}
