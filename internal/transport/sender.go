// sender.go — Batched HTTP sender with exponential-backoff retry and
// spill-on-exhaustion.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/monitorcore/monitorcore/internal/event"
	"github.com/monitorcore/monitorcore/internal/logx"
	"github.com/monitorcore/monitorcore/internal/store"
)

const (
	DefaultBatchSize      = 50
	DefaultMaxRetries     = 3
	DefaultTimeout        = 10 * time.Second
	DefaultInitialBackoff = 1 * time.Second
)

// Sender batches events, POSTs them to Endpoint, retries with doubling
// backoff, and spills exhausted batches to Spill.
type Sender struct {
	Client         *http.Client
	Endpoint       string
	APIKey         string
	BatchSize      int
	MaxRetries     int
	Timeout        time.Duration
	InitialBackoff time.Duration
	Compress       bool
	Spill          *store.SpillStore
	Log            *logx.Logger

	// sleep is overridden in tests to avoid waiting out real backoffs.
	sleep func(time.Duration)
}

// NewSender builds a Sender with sensible defaults for any zero field.
func NewSender(endpoint, apiKey string, spill *store.SpillStore, log *logx.Logger) *Sender {
	return &Sender{
		Client:         &http.Client{},
		Endpoint:       endpoint,
		APIKey:         apiKey,
		BatchSize:      DefaultBatchSize,
		MaxRetries:     DefaultMaxRetries,
		Timeout:        DefaultTimeout,
		InitialBackoff: DefaultInitialBackoff,
		Spill:          spill,
		Log:            log,
		sleep:          time.Sleep,
	}
}

// Send splits events into batches of at most BatchSize and transmits
// each batch concurrently. Every batch's errors are collected and
// returned to the caller. A failed batch never leaves events in the
// queue's memory, since the queue was already drained before Send was
// called; instead it is appended to the spill store.
func (s *Sender) Send(ctx context.Context, nowMS int64, events []event.Event) error {
	batches := chunk(events, s.batchSize())
	if len(batches) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, batch := range batches {
		wg.Add(1)
		go func(batch []event.Event) {
			defer wg.Done()
			if err := s.sendBatchWithRetry(ctx, nowMS, batch); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(batch)
	}
	wg.Wait()

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("sender: %d of %d batches failed: %w", len(errs), len(batches), errs[0])
}

func (s *Sender) batchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

func (s *Sender) maxRetries() int {
	if s.MaxRetries < 0 {
		return DefaultMaxRetries
	}
	return s.MaxRetries
}

func (s *Sender) initialBackoff() time.Duration {
	if s.InitialBackoff <= 0 {
		return DefaultInitialBackoff
	}
	return s.InitialBackoff
}

// sendBatchWithRetry attempts delivery up to 1+MaxRetries times with
// doubling backoff, spilling the batch if every attempt fails.
func (s *Sender) sendBatchWithRetry(ctx context.Context, nowMS int64, batch []event.Event) error {
	backoff := s.initialBackoff()
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries(); attempt++ {
		if attempt > 0 {
			s.sleepFn()(backoff)
			backoff *= 2
		}

		if err := s.postOnce(ctx, nowMS, batch); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if s.Spill != nil {
		if spillErr := s.Spill.Append(context.Background(), batch); spillErr != nil {
			s.logger().Warnf("spill append failed after exhausted retries: %v", spillErr)
		}
	}
	return fmt.Errorf("batch of %d events exhausted retries: %w", len(batch), lastErr)
}

func (s *Sender) sleepFn() func(time.Duration) {
	if s.sleep != nil {
		return s.sleep
	}
	return time.Sleep
}

func (s *Sender) logger() *logx.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logx.New("[monitorcore]", false)
}

// postOnce performs a single POST attempt, honoring Timeout via a
// derived context. A non-2xx response or a network error both count as
// failures eligible for retry.
func (s *Sender) postOnce(ctx context.Context, nowMS int64, batch []event.Event) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(NewBatch(batch, nowMS))
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	encoding := ""
	if s.Compress {
		compressed, err := gzipCompress(body)
		if err == nil {
			body = compressed
			encoding = "gzip"
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("X-SDK-Version", SDKVersion)
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector responded %d", resp.StatusCode)
	}
	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReplaySpill attempts to re-send every event currently in the spill
// store once. Success empties the store; failure leaves it intact.
// Called on orchestrator startup and on the host environment's online signal.
func (s *Sender) ReplaySpill(ctx context.Context, nowMS int64) error {
	if s.Spill == nil {
		return nil
	}
	events, err := s.Spill.Load(ctx)
	if err != nil || len(events) == 0 {
		return err
	}
	// Clear optimistically: any batch that still fails re-appends
	// itself via sendBatchWithRetry, so a partial replay leaves only
	// the still-failing events behind rather than duplicating the
	// whole set.
	if err := s.Spill.Clear(ctx); err != nil {
		return err
	}
	return s.Send(ctx, nowMS, events)
}

func chunk(events []event.Event, size int) [][]event.Event {
	if len(events) == 0 {
		return nil
	}
	var out [][]event.Event
	for i := 0; i < len(events); i += size {
		end := i + size
		if end > len(events) {
			end = len(events)
		}
		out = append(out, events[i:end])
	}
	return out
}
