// spill.go — Persistent failed-event store.
//
// Events whose HTTP upload exhausted retries are parked here until a
// later successful retry. Capped at a fixed entry count (default 1000),
// newest-wins when capped, and additionally bounded by cumulative byte
// size to avoid exceeding a real browser storage quota — the byte-size
// bound generalizes cleanly to the sqlite-backed store too, where an
// unbounded single row would be an equally bad idea.
package store

import (
	"context"
	"encoding/json"

	"github.com/monitorcore/monitorcore/internal/event"
)

const (
	// DefaultSpillCapacity bounds the store by entry count.
	DefaultSpillCapacity = 1000
	// DefaultSpillMaxBytes bounds the store's cumulative serialized size.
	DefaultSpillMaxBytes = 5 * 1024 * 1024
	failedEventsKey      = "failed_events"
)

// SpillStore parks events that failed upload in a KV-backed JSON array.
type SpillStore struct {
	kv       KV
	appID    string
	capacity int
	maxBytes int
}

// NewSpillStore builds a SpillStore over kv for appID with the given
// entry-count and byte-size bounds.
func NewSpillStore(kv KV, appID string, capacity, maxBytes int) *SpillStore {
	if capacity <= 0 {
		capacity = DefaultSpillCapacity
	}
	if maxBytes <= 0 {
		maxBytes = DefaultSpillMaxBytes
	}
	return &SpillStore{kv: kv, appID: appID, capacity: capacity, maxBytes: maxBytes}
}

func (s *SpillStore) key() string {
	return Namespaced(s.appID, failedEventsKey)
}

// Append adds events to the spill store, evicting the oldest entries
// (newest-wins) until both the capacity and byte-size bounds are met.
func (s *SpillStore) Append(ctx context.Context, events []event.Event) error {
	existing, err := s.Load(ctx)
	if err != nil {
		return err
	}
	existing = append(existing, events...)

	for len(existing) > s.capacity {
		existing = existing[1:]
	}
	for totalSize(existing) > s.maxBytes && len(existing) > 0 {
		existing = existing[1:]
	}

	raw, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key(), string(raw))
}

// Load returns the currently spilled events, oldest first.
func (s *SpillStore) Load(ctx context.Context) ([]event.Event, error) {
	raw, ok, err := s.kv.Get(ctx, s.key())
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var events []event.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Clear empties the spill store. Called after a successful replay.
func (s *SpillStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, s.key())
}

// Size returns the number of currently spilled events.
func (s *SpillStore) Size(ctx context.Context) (int, error) {
	events, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

func totalSize(events []event.Event) int {
	total := 0
	for _, e := range events {
		total += e.ApproxSize()
	}
	return total
}
