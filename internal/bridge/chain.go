// chain.go — Save-and-chain handler installation.
//
// Every global hook a capture component installs (error handler,
// rejection handler, fetch, XHR.open/send, history methods) must
// preserve the caller's prior behavior rather than replacing it: record
// the prior reference, install a wrapper that invokes it first, and
// restore the prior reference on uninstall. Hook[T] models that pattern
// directly. No capture component in this module holds a Hook: they
// subscribe to bridge Sources, and the page-level handlers belong to the
// host environment.
package bridge

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
)

// Hook is a chainable callback slot for signals of type T. Calling
// Chain wraps the current handler (nil on first use) so the new
// handler's own work runs after the preserved prior handler's work —
// host application handlers always fire first.
type Hook[T any] struct {
	mu sync.Mutex
	fn func(T)
}

// Chain installs own, preserving whatever was previously installed.
// The returned uninstall func restores the exact prior reference, so a
// stop/start cycle round-trips back to the pre-install handler
// references. A panicking own never prevents the prior handler (or
// subsequent chained handlers) from running.
func (h *Hook[T]) Chain(own func(T)) (uninstall func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prior := h.fn
	h.fn = func(v T) {
		if prior != nil {
			prior(v)
		}
		safeInvoke(own, v)
	}

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.fn = prior
	}
}

// Invoke runs the currently installed chain, if any, with v.
func (h *Hook[T]) Invoke(v T) {
	h.mu.Lock()
	fn := h.fn
	h.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

// Installed reports whether any handler is currently chained.
func (h *Hook[T]) Installed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fn != nil
}

func safeInvoke[T any](fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[monitorcore] PANIC in capture handler: %v\n%s\n", r, debug.Stack())
		}
	}()
	fn(v)
}
