// plugin.go — Plugin registry: install/uninstall lifecycle over the Bus.
package plugin

import (
	"sync"

	"github.com/monitorcore/monitorcore/internal/logx"
)

// Core is the surface a Plugin's Install receives: enough of the
// orchestrator's public API to subscribe to events and emit custom
// ones, without exposing internal capture/transport state.
type Core interface {
	On(evt string, fn Handler)
	Off(evt string, fn Handler)
	Track(name string, props map[string]any)
}

// Plugin is an installable extension. Uninstall is optional; a nil
// value is a plugin with nothing to clean up.
type Plugin struct {
	Name      string
	Version   string
	Install   func(core Core)
	Uninstall func()
}

// Registry tracks installed plugins by name and runs their Uninstall
// hooks on shutdown.
type Registry struct {
	mu        sync.Mutex
	installed map[string]Plugin
	log       *logx.Logger
}

// NewRegistry builds an empty Registry.
func NewRegistry(log *logx.Logger) *Registry {
	if log == nil {
		log = logx.New("[monitorcore]", false)
	}
	return &Registry{installed: make(map[string]Plugin), log: log}
}

// Use installs p against core. Installing a second plugin of the same
// name is a warning, not an error; the existing installation is left
// in place and the new Install is never called.
func (r *Registry) Use(p Plugin, core Core) {
	r.mu.Lock()
	if _, exists := r.installed[p.Name]; exists {
		r.mu.Unlock()
		r.log.Warnf("plugin: %q is already installed, ignoring duplicate Use", p.Name)
		return
	}
	r.installed[p.Name] = p
	r.mu.Unlock()

	if p.Install != nil {
		p.Install(core)
	}
}

// Unuse removes the named plugin, running its Uninstall if present. A
// no-op (warning) if name was never installed.
func (r *Registry) Unuse(name string) {
	r.mu.Lock()
	p, exists := r.installed[name]
	if !exists {
		r.mu.Unlock()
		r.log.Warnf("plugin: %q is not installed, nothing to remove", name)
		return
	}
	delete(r.installed, name)
	r.mu.Unlock()

	if p.Uninstall != nil {
		p.Uninstall()
	}
}

// Shutdown runs every installed plugin's Uninstall and clears the
// registry, in no particular order (plugins must not depend on
// teardown ordering relative to one another).
func (r *Registry) Shutdown() {
	r.mu.Lock()
	installed := r.installed
	r.installed = make(map[string]Plugin)
	r.mu.Unlock()

	for _, p := range installed {
		if p.Uninstall != nil {
			p.Uninstall()
		}
	}
}

// Installed reports whether name is currently installed.
func (r *Registry) Installed(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.installed[name]
	return ok
}
