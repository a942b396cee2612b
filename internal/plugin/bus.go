// bus.go — Named event bus the core emits lifecycle and custom-track
// events on; plugins and façade callers subscribe to react to them.
package plugin

import (
	"fmt"
	"os"
	"reflect"
	"sync"
)

// Handler reacts to one emission on a subscribed event name.
type Handler func(payload any)

// Bus is a simple named pub/sub multiplexer. Safe for concurrent use.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
}

// NewBus builds an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers fn to run on every future emit of name.
func (b *Bus) Subscribe(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], fn)
}

// Unsubscribe removes fn from name's handler list. Go func values are
// not comparable, so matching is by underlying code pointer: distinct
// handlers sharing one closure body are indistinguishable, same as
// function-identity-based unsubscribe in any language without handles.
func (b *Bus) Unsubscribe(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	target := reflect.ValueOf(fn).Pointer()
	handlers := b.handlers[name]
	for i := range handlers {
		if reflect.ValueOf(handlers[i]).Pointer() == target {
			b.handlers[name] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// UnsubscribeAll removes every handler registered for name. Used when a
// caller wants to stop listening without having kept its original
// Handler reference (e.g. off(evt) with no fn, per the façade surface).
func (b *Bus) UnsubscribeAll(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, name)
}

// Emit invokes every handler registered for name, in registration
// order, passing payload. Each handler runs directly, on the caller's
// goroutine. Emit never panics the caller: a panicking handler is
// recovered and logged to stderr, and the remaining handlers still run.
func (b *Bus) Emit(name string, payload any) {
	b.mu.Lock()
	handlers := make([]Handler, len(b.handlers[name]))
	copy(handlers, b.handlers[name])
	b.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "[monitorcore] PANIC in bus handler for %q: %v\n", name, r)
				}
			}()
			h(payload)
		}()
	}
}
