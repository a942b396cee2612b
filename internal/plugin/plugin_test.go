package plugin

import "testing"

type fakeCore struct {
	bus *Bus
}

func (c *fakeCore) On(evt string, fn Handler)              { c.bus.Subscribe(evt, fn) }
func (c *fakeCore) Off(evt string, fn Handler)             { c.bus.Unsubscribe(evt, fn) }
func (c *fakeCore) Track(name string, props map[string]any) {
	c.bus.Emit("track", map[string]any{"name": name, "props": props})
}

func TestUseInstallsExactlyOnce(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	core := &fakeCore{bus: NewBus()}
	installs := 0
	p := Plugin{Name: "analytics", Version: "1.0.0", Install: func(c Core) { installs++ }}

	r.Use(p, core)
	if installs != 1 || !r.Installed("analytics") {
		t.Fatalf("installs = %d, installed = %v, want 1/true", installs, r.Installed("analytics"))
	}
}

func TestDuplicateUseIsIgnored(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	core := &fakeCore{bus: NewBus()}
	installs := 0
	p := Plugin{Name: "analytics", Install: func(c Core) { installs++ }}

	r.Use(p, core)
	r.Use(p, core)
	if installs != 1 {
		t.Fatalf("installs = %d, want 1 (second Use ignored)", installs)
	}
}

func TestUnuseRunsUninstall(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	core := &fakeCore{bus: NewBus()}
	uninstalled := false
	p := Plugin{Name: "analytics", Install: func(c Core) {}, Uninstall: func() { uninstalled = true }}

	r.Use(p, core)
	r.Unuse("analytics")
	if !uninstalled || r.Installed("analytics") {
		t.Fatalf("uninstalled = %v, installed = %v, want true/false", uninstalled, r.Installed("analytics"))
	}
}

func TestShutdownUninstallsEveryPlugin(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	core := &fakeCore{bus: NewBus()}
	var uninstalled []string
	r.Use(Plugin{Name: "a", Install: func(c Core) {}, Uninstall: func() { uninstalled = append(uninstalled, "a") }}, core)
	r.Use(Plugin{Name: "b", Install: func(c Core) {}, Uninstall: func() { uninstalled = append(uninstalled, "b") }}, core)

	r.Shutdown()
	if len(uninstalled) != 2 || r.Installed("a") || r.Installed("b") {
		t.Fatalf("uninstalled = %v, want both a and b removed", uninstalled)
	}
}

func TestPluginCanTrackThroughCore(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	bus := NewBus()
	core := &fakeCore{bus: bus}
	var tracked map[string]any
	bus.Subscribe("track", func(payload any) { tracked = payload.(map[string]any) })

	r.Use(Plugin{Name: "tracker", Install: func(c Core) {
		c.Track("pageview", map[string]any{"path": "/"})
	}}, core)

	if tracked["name"] != "pageview" {
		t.Fatalf("tracked = %v, want name=pageview", tracked)
	}
}
