// source.go — The seam between the out-of-scope host environment and
// the capture components.
//
// Browser APIs like window.onerror, PerformanceObserver,
// MutationObserver, fetch/XHR, and sendBeacon have no Go equivalent:
// this process never touches a page itself. A separate browser agent
// observes it and forwards already-captured signals across a bridge,
// and this process owns buffering, dedup, redaction, and delivery.
// This package is that bridge: a capture component subscribes to a
// Source[T] and reacts to whatever the host environment (the façade's
// JS shims, or a test double) pushes onto it. Nothing downstream of
// Source cares whether the signal came from a real page.
package bridge

import (
	"context"
	"sync"
)

// Source delivers signals of type T produced by the host environment.
// Implementations are typically a buffered channel fed by the façade;
// Close must be idempotent and safe to call without a prior Listen.
type Source[T any] interface {
	// Listen returns a channel of signals. The channel is closed when
	// the source is closed or ctx is done, whichever comes first.
	Listen(ctx context.Context) <-chan T
	// Close stops producing signals and releases any resources.
	Close()
}

// Chan is the simplest Source: a pre-existing channel, closed by the
// caller. Production hosts wire a real channel; tests construct one
// directly and push fixtures onto it.
type Chan[T any] struct {
	C chan T

	once sync.Once
}

// NewChan builds a Chan-backed Source with the given buffer size.
func NewChan[T any](buffer int) *Chan[T] {
	return &Chan[T]{C: make(chan T, buffer)}
}

func (s *Chan[T]) Listen(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-s.C:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Close closes the underlying channel. Safe to call more than once:
// only the first call closes it.
func (s *Chan[T]) Close() {
	s.once.Do(func() { close(s.C) })
}
