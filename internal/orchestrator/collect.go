// collect.go — Periodic drain-and-admit cycle and the shared-queue
// admission path every event (captured or custom) funnels through.
package orchestrator

import (
	"context"

	"github.com/monitorcore/monitorcore/internal/event"
)

// collectAndAdmit drains every enabled capture component's buffer and
// admits each event through the sampler. Called on every periodic
// tick, on unload, and once more during Stop so nothing buffered is
// lost to a race with the tick being cancelled.
func (c *Core) collectAndAdmit() {
	if c.errors != nil {
		for _, e := range c.errors.Drain(0) {
			c.admit(e)
		}
	}
	if c.cfg.Features.Performance {
		c.admit(c.perf.Collect())
	}
	if c.behavior != nil {
		for _, e := range c.behavior.Drain(0) {
			c.admit(e)
		}
	}
	c.drainReplay()
}

// drainReplay collects whatever replay records have accumulated since
// the last drain and admits them as one batched replay event, the same
// way every other capture component's buffer is drained. A no-op when
// the replay feature is disabled or nothing has accumulated yet.
func (c *Core) drainReplay() {
	if !c.cfg.Features.Replay {
		return
	}
	records := c.replay.Drain()
	if len(records) == 0 {
		return
	}
	c.admit(c.exporter.Export(records))
}

// admit runs e through the sampler and, if admitted, enqueues it and
// notifies the flush policy (debounced for errors, throttled for
// everything else).
func (c *Core) admit(e event.Event) {
	if !c.samp.Admit(e) {
		return
	}
	c.queue.Enqueue(e)
	if e.Type == event.KindError {
		c.policy.NotifyError()
	} else {
		c.policy.NotifyEvent()
	}
}

// Flush drains the shared queue and hands it to the batched sender.
// Called by the periodic tick, the flush policy's triggers, Stop, and
// directly via the public Flush surface.
func (c *Core) Flush(ctx context.Context) error {
	events := c.queue.Drain(0)
	if len(events) == 0 {
		return nil
	}
	return c.sender.Send(ctx, c.now(), events)
}
