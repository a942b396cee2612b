// lifecycle.go — Core orchestrator: wires capture components, the
// sampler, flush policy, and transport into one session lifecycle.
//
// The core never touches a page itself (see internal/bridge); Start
// takes a Sources bundle the host environment feeds, and the core owns
// everything downstream of "a signal arrived": sampling, buffering,
// flush scheduling, delivery, and spill.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/monitorcore/monitorcore/internal/bridge"
	"github.com/monitorcore/monitorcore/internal/capture/behaviorcap"
	"github.com/monitorcore/monitorcore/internal/capture/errorcap"
	"github.com/monitorcore/monitorcore/internal/capture/perfcap"
	"github.com/monitorcore/monitorcore/internal/config"
	"github.com/monitorcore/monitorcore/internal/event"
	"github.com/monitorcore/monitorcore/internal/fingerprint"
	"github.com/monitorcore/monitorcore/internal/flush"
	"github.com/monitorcore/monitorcore/internal/logx"
	"github.com/monitorcore/monitorcore/internal/plugin"
	"github.com/monitorcore/monitorcore/internal/queue"
	"github.com/monitorcore/monitorcore/internal/redaction"
	"github.com/monitorcore/monitorcore/internal/replay"
	"github.com/monitorcore/monitorcore/internal/sampler"
	"github.com/monitorcore/monitorcore/internal/store"
	"github.com/monitorcore/monitorcore/internal/transport"
	"github.com/monitorcore/monitorcore/internal/util"
)

// QueueCapacity bounds the shared pre-send queue every sampled event is
// admitted into, regardless of which capture component produced it.
const QueueCapacity = 1000

// UnloadReason names which of the three unload-adjacent signals fired.
type UnloadReason string

const (
	UnloadHidden       UnloadReason = "hidden"
	UnloadPageHide     UnloadReason = "pagehide"
	UnloadBeforeUnload UnloadReason = "beforeunload"
)

// UnloadSignal is forwarded on visibilitychange->hidden, pagehide, and
// beforeunload alike; the core reacts to all three identically.
type UnloadSignal struct {
	Reason UnloadReason
}

// Sources bundles every bridge feed the core and its capture
// components listen to for one session.
type Sources struct {
	Errors   errorcap.Sources
	Perf     perfcap.Sources
	Behavior behaviorcap.Sources
	Replay   replay.Sources

	// Online fires on the host environment's network "online" event.
	Online bridge.Source[struct{}]
	// Unload fires on visibilitychange->hidden, pagehide, or beforeunload.
	Unload bridge.Source[UnloadSignal]
}

// ReplaySnapshotSource supplies the initial DOM snapshot a replay
// recording starts from. Like every other host signal this crosses the
// bridge seam rather than being read directly.
type ReplaySnapshotSource struct {
	Root                 replay.SourceNode
	ViewportW, ViewportH int
	URL, Doctype         string
}

// Core is one session's orchestrator: identity, sampling, buffering,
// flush scheduling, delivery, and the plugin/event-emitter surface.
type Core struct {
	cfg config.Config
	log *logx.Logger
	now func() int64

	kv        store.KV
	sessIdent *store.SessionIdentity
	userIdent *store.UserIdentity
	spill     *store.SpillStore

	samp   *sampler.Sampler
	queue  *queue.Queue[event.Event]
	sender *transport.Sender
	beacon *transport.BeaconSender
	policy *flush.Policy
	redact *redaction.Engine
	dedup  *fingerprint.Dedup

	errors   *errorcap.Capture
	perf     *perfcap.Capture
	behavior *behaviorcap.Capture
	replay   *replay.Recorder
	exporter *replay.Exporter

	bus     *plugin.Bus
	plugins *plugin.Registry

	mu        sync.Mutex
	running   bool
	sessionID string
	userID    string
	cancel    context.CancelFunc
	ticker    *time.Ticker
	tickDone  chan struct{}
}

// New builds a Core for cfg. cfg must already satisfy Validate. kv
// backs both identity stores and the spill store; pass store.NewMemory()
// for a process with no durable backing store.
func New(cfg config.Config, kv store.KV) *Core {
	log := logx.New("[monitorcore]", cfg.Debug)
	spill := store.NewSpillStore(kv, cfg.AppID, store.DefaultSpillCapacity, store.DefaultSpillMaxBytes)

	c := &Core{
		cfg:       cfg,
		log:       log,
		now:       func() int64 { return time.Now().UnixMilli() },
		kv:        kv,
		sessIdent: store.NewSessionIdentity(kv, cfg.AppID),
		userIdent: store.NewUserIdentity(kv, cfg.AppID),
		spill:     spill,
		samp:      sampler.New(cfg.Sampling, sampler.Overrides{MinSeverity: event.SeverityHigh, PageLoadThresholdMS: cfg.PageLoadThresholdMS}),
		queue:     queue.New[event.Event](QueueCapacity),
		sender:    transport.NewSender(cfg.Endpoint, cfg.APIKey, spill, log),
		beacon:    transport.NewBeaconSender(cfg.Endpoint, cfg.APIKey),
		redact:    redaction.NewEngine(),
		dedup:     fingerprint.NewDedup(),
		perf:      perfcap.New(cfg.AppID, "", ""),
		bus:       plugin.NewBus(),
		plugins:   plugin.NewRegistry(log),
	}
	c.sender.BatchSize = cfg.Reporting.BatchSize
	c.sender.MaxRetries = cfg.Reporting.MaxRetries
	c.sender.Timeout = cfg.Reporting.Timeout

	c.queue.OnDrop(func(dropped event.Event) {
		log.Warnf("orchestrator: queue overflow, dropped event %s", dropped.EventID)
	})
	c.policy = flush.New(flush.DefaultDebounceWindow, flush.DefaultThrottleWindow, func() {
		if err := c.Flush(context.Background()); err != nil {
			log.Warnf("scheduled flush failed: %v", err)
		}
	})
	c.replay = replay.New(replay.FeatureGate{MutationObserver: true, IntersectionObserver: true}, log)
	c.exporter = replay.NewExporter(cfg.AppID, "", "", c.now)
	return c
}

// Start resolves session/user identity, wires every enabled capture
// component to src, replays any spilled events once, and begins the
// periodic flush tick. A second Start call on an already-running core
// is a no-op.
func (c *Core) Start(ctx context.Context, src Sources) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}

	sessionID, err := c.sessIdent.SessionID(ctx, c.now())
	if err != nil {
		c.mu.Unlock()
		return err
	}
	userID, err := c.userIdent.UserID(ctx)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.sessionID = sessionID
	c.userID = userID
	c.errors = errorcap.New(c.cfg.AppID, sessionID, userID, c.redact, c.log, func(event.Event) { c.policy.NotifyError() })
	c.errors.SetAllowedDomains(c.cfg.Privacy.AllowedDomains)
	c.perf = perfcap.New(c.cfg.AppID, sessionID, userID)
	c.exporter = replay.NewExporter(c.cfg.AppID, sessionID, userID, c.now)

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	if c.cfg.Features.Errors {
		c.errors.Start(runCtx, src.Errors)
	}
	if c.cfg.Features.Performance {
		c.perf.Start(runCtx, src.Perf)
	}
	if c.cfg.Features.Behavior {
		c.behavior = behaviorcap.New(c.cfg.AppID, sessionID, userID, c.log)
		c.behavior.SetMaskSensitiveData(c.cfg.Privacy.MaskSensitiveData)
		c.behavior.SetBlockedElements(c.cfg.Privacy.BlockedElements)
		c.behavior.Start(runCtx, src.Behavior)
	}
	c.replay.SetMaskSensitiveData(c.cfg.Privacy.MaskSensitiveData)
	if src.Online != nil {
		util.SafeGo(func() { c.watchOnline(runCtx, src.Online) })
	}
	if src.Unload != nil {
		util.SafeGo(func() { c.watchUnload(runCtx, src.Unload) })
	}

	if err := c.sender.ReplaySpill(runCtx, c.now()); err != nil {
		c.log.Warnf("startup spill replay failed: %v", err)
	}

	c.startTicker(runCtx)
	c.bus.Emit("start", map[string]any{"sessionId": sessionID})
	return nil
}

func (c *Core) startTicker(ctx context.Context) {
	interval := c.cfg.Reporting.FlushInterval
	if interval <= 0 {
		interval = config.DefaultReporting().FlushInterval
	}
	c.mu.Lock()
	c.ticker = time.NewTicker(interval)
	c.tickDone = make(chan struct{})
	ticker := c.ticker
	done := c.tickDone
	c.mu.Unlock()

	util.SafeGo(func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				c.collectAndAdmit()
				if err := c.Flush(ctx); err != nil {
					c.log.Warnf("periodic flush failed: %v", err)
				}
			}
		}
	})
}

func (c *Core) watchOnline(ctx context.Context, src bridge.Source[struct{}]) {
	for range src.Listen(ctx) {
		if err := c.sender.ReplaySpill(ctx, c.now()); err != nil {
			c.log.Warnf("online spill replay failed: %v", err)
		}
	}
}

func (c *Core) watchUnload(ctx context.Context, src bridge.Source[UnloadSignal]) {
	for range src.Listen(ctx) {
		c.collectAndAdmit()
		events := c.queue.Drain(0)
		if len(events) == 0 {
			continue
		}
		if err := c.beacon.Send(context.Background(), c.now(), events); err != nil {
			c.log.Warnf("unload beacon failed: %v", err)
		}
		if c.replayActive() {
			records := c.replay.Snapshot()
			if len(records) > 0 {
				replayEvent := c.exporter.Export(records)
				if err := c.beacon.Send(context.Background(), c.now(), []event.Event{replayEvent}); err != nil {
					c.log.Warnf("unload replay beacon failed: %v", err)
				}
			}
		}
	}
}

func (c *Core) replayActive() bool {
	switch c.replay.State() {
	case replay.StateRecording, replay.StatePaused:
		return true
	default:
		return false
	}
}

// Stop disconnects every capture component and source subscription,
// stops the periodic tick, runs a final flush, and uninstalls every
// plugin. Stop sends no beacon; the final flush is its only delivery
// attempt.
func (c *Core) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.errors != nil {
		c.errors.Stop()
	}
	c.perf.Stop()
	if c.behavior != nil {
		c.behavior.Stop()
	}
	c.drainReplay()
	c.replay.Stop()
	c.policy.Stop()

	c.collectAndAdmit()
	if err := c.Flush(context.Background()); err != nil {
		c.log.Warnf("final flush on stop failed: %v", err)
	}

	c.plugins.Shutdown()
	c.bus.Emit("stop", map[string]any{"sessionId": c.sessionID})
}
