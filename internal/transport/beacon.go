// beacon.go — One-shot unload-time sender.
//
// Go has no navigator.sendBeacon; the host environment that embeds this
// SDK owns the actual unload-safe delivery mechanism. This module ships
// the same-process stand-in the host environment would call through: a
// single best-effort HTTP POST with no retry, used directly by tests
// and the demo, and is what a real façade's beacon shim would fall back
// to in a browser that lacks the Beacon API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/monitorcore/monitorcore/internal/event"
)

// BeaconSender performs the single synchronous unload-time send.
type BeaconSender struct {
	Client   *http.Client
	Endpoint string
	APIKey   string
}

// NewBeaconSender builds a BeaconSender with a short client timeout,
// since unload handlers must not block page teardown.
func NewBeaconSender(endpoint, apiKey string) *BeaconSender {
	return &BeaconSender{
		Client:   &http.Client{Timeout: 2 * time.Second},
		Endpoint: endpoint,
		APIKey:   apiKey,
	}
}

// Send transmits events as a single beacon body. An empty event list
// performs no request and returns success. The API key travels as a
// query parameter because real beacon requests cannot carry custom
// headers.
func (b *BeaconSender) Send(ctx context.Context, nowMS int64, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	body, err := json.Marshal(NewBatch(events, nowMS))
	if err != nil {
		return fmt.Errorf("marshal beacon batch: %w", err)
	}

	endpoint := b.Endpoint
	if u, err := url.Parse(b.Endpoint); err == nil {
		q := u.Query()
		q.Set("apiKey", b.APIKey)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build beacon request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("beacon send failed: %w", err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("beacon collector responded %d", resp.StatusCode)
	}
	return nil
}
