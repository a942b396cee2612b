package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/monitorcore/monitorcore/internal/bridge"
	"github.com/monitorcore/monitorcore/internal/capture/behaviorcap"
	"github.com/monitorcore/monitorcore/internal/capture/errorcap"
	"github.com/monitorcore/monitorcore/internal/config"
	"github.com/monitorcore/monitorcore/internal/event"
	"github.com/monitorcore/monitorcore/internal/plugin"
	"github.com/monitorcore/monitorcore/internal/replay"
	"github.com/monitorcore/monitorcore/internal/sampler"
	"github.com/monitorcore/monitorcore/internal/store"
	"github.com/monitorcore/monitorcore/internal/transport"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestCore(t *testing.T, endpoint string) *Core {
	t.Helper()
	cfg := config.Default()
	cfg.AppID = "app1"
	cfg.APIKey = "key1"
	cfg.Endpoint = endpoint
	cfg.Sampling = sampler.Rates{Performance: 1, Errors: 1, Behavior: 1, Replay: 1}
	cfg.Reporting.FlushInterval = time.Hour
	return New(cfg, store.NewMemory())
}

func fakeCollector(t *testing.T, onBatch func(transport.Batch)) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/ingest", func(w http.ResponseWriter, req *http.Request) {
		var batch transport.Batch
		if err := json.NewDecoder(req.Body).Decode(&batch); err != nil {
			t.Errorf("decode batch: %v", err)
		}
		onBatch(batch)
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(r)
}

func TestStartResolvesSessionAndEmitsStart(t *testing.T) {
	t.Parallel()
	srv := fakeCollector(t, func(transport.Batch) {})
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")

	var started map[string]any
	c.On("start", func(payload any) { started = payload.(map[string]any) })

	if err := c.Start(context.Background(), Sources{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	status := c.GetStatus()
	if !status.Running || status.SessionID == "" {
		t.Fatalf("status = %+v, want running with a sessionId", status)
	}
	if started["sessionId"] != status.SessionID {
		t.Fatalf("start event sessionId = %v, want %v", started["sessionId"], status.SessionID)
	}
}

func TestSecondStartIsNoOp(t *testing.T) {
	t.Parallel()
	srv := fakeCollector(t, func(transport.Batch) {})
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")

	_ = c.Start(context.Background(), Sources{})
	defer c.Stop()
	first := c.GetStatus().SessionID

	_ = c.Start(context.Background(), Sources{})
	if c.GetStatus().SessionID != first {
		t.Fatal("second Start rotated the session id")
	}
}

func TestCaptureExceptionReachesCollectorOnFlush(t *testing.T) {
	t.Parallel()
	var got transport.Batch
	var calls atomic.Int32
	srv := fakeCollector(t, func(b transport.Batch) {
		got = b
		calls.Add(1)
	})
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")

	if err := c.Start(context.Background(), Sources{}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	c.CaptureException(errTest("boom"), map[string]any{"where": "test"}, "")
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if calls.Load() != 1 || len(got.Events) != 1 {
		t.Fatalf("collector received %d batches / %d events, want 1/1", calls.Load(), len(got.Events))
	}
	if got.Events[0].Type != event.KindError {
		t.Fatalf("event type = %v, want error", got.Events[0].Type)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestDuplicateCaptureMessageIsDeduped(t *testing.T) {
	t.Parallel()
	var total atomic.Int32
	srv := fakeCollector(t, func(b transport.Batch) { total.Add(int32(len(b.Events))) })
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")

	if err := c.Start(context.Background(), Sources{}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	c.CaptureMessage("same message", event.SeverityMedium, nil)
	c.CaptureMessage("same message", event.SeverityMedium, nil)
	_ = c.Flush(context.Background())

	if total.Load() != 1 {
		t.Fatalf("events received = %d, want 1 (second is a dedup drop)", total.Load())
	}
}

func TestTrackAdmitsBehaviorEventAndEmitsTrackBusEvent(t *testing.T) {
	t.Parallel()
	var total atomic.Int32
	srv := fakeCollector(t, func(b transport.Batch) { total.Add(int32(len(b.Events))) })
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")

	var tracked map[string]any
	c.On("track", func(payload any) { tracked = payload.(map[string]any) })

	if err := c.Start(context.Background(), Sources{}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	c.Track("signup", map[string]any{"plan": "pro"})
	_ = c.Flush(context.Background())

	if tracked["name"] != "signup" {
		t.Fatalf("tracked bus payload = %v, want name=signup", tracked)
	}
	if total.Load() != 1 {
		t.Fatalf("events received = %d, want 1", total.Load())
	}
}

func TestSetUserAndClearUserRoundTrip(t *testing.T) {
	t.Parallel()
	srv := fakeCollector(t, func(transport.Batch) {})
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")

	ctx := context.Background()
	if err := c.Start(ctx, Sources{}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	if err := c.SetUser(ctx, "user-1", nil); err != nil {
		t.Fatal(err)
	}
	if got := c.GetStatus().UserID; got != "user-1" {
		t.Fatalf("UserID = %q, want user-1", got)
	}

	if err := c.ClearUser(ctx); err != nil {
		t.Fatal(err)
	}
	if got := c.GetStatus().UserID; got != "" {
		t.Fatalf("UserID after ClearUser = %q, want empty", got)
	}
}

func TestUnloadDrainsQueueAndSendsBeacon(t *testing.T) {
	t.Parallel()
	var got transport.Batch
	var calls atomic.Int32
	srv := fakeCollector(t, func(b transport.Batch) {
		got = b
		calls.Add(1)
	})
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")
	// Perf capture would add one event per collect; off for an exact count.
	c.cfg.Features.Performance = false

	unload := bridge.NewChan[UnloadSignal](1)
	if err := c.Start(context.Background(), Sources{Unload: unload}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	c.CaptureMessage("going away", event.SeverityLow, nil)
	unload.C <- UnloadSignal{Reason: UnloadBeforeUnload}
	waitFor(t, func() bool { return calls.Load() == 1 })

	if len(got.Events) != 1 {
		t.Fatalf("beacon events = %d, want 1", len(got.Events))
	}
	if c.GetStatus().QueueSize != 0 {
		t.Fatalf("queue size after unload = %d, want 0", c.GetStatus().QueueSize)
	}
}

func TestUseInstallsPluginAgainstCore(t *testing.T) {
	t.Parallel()
	srv := fakeCollector(t, func(transport.Batch) {})
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")

	installed := false
	c.Use(plugin.Plugin{Name: "p1", Install: func(core plugin.Core) { installed = true }})

	if !installed {
		t.Fatal("plugin Install was not called")
	}
}

func TestStopRunsFinalFlushAndStopEvent(t *testing.T) {
	t.Parallel()
	var total atomic.Int32
	srv := fakeCollector(t, func(b transport.Batch) { total.Add(int32(len(b.Events))) })
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")
	// Perf capture would add one event per collect; off for an exact count.
	c.cfg.Features.Performance = false

	var stopped bool
	c.On("stop", func(payload any) { stopped = true })

	if err := c.Start(context.Background(), Sources{}); err != nil {
		t.Fatal(err)
	}
	c.CaptureMessage("last gasp", event.SeverityLow, nil)
	c.Stop()

	if !stopped {
		t.Fatal("stop bus event was not emitted")
	}
	if total.Load() != 1 {
		t.Fatalf("events received by final flush = %d, want 1", total.Load())
	}
	if c.GetStatus().Running {
		t.Fatal("status still reports running after Stop")
	}
}

func TestStopReplayAdmitsAccumulatedRecordsBeforeReset(t *testing.T) {
	t.Parallel()
	var total atomic.Int32
	srv := fakeCollector(t, func(b transport.Batch) { total.Add(int32(len(b.Events))) })
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")
	c.cfg.Features.Replay = true

	if err := c.Start(context.Background(), Sources{}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	c.StartReplay(context.Background(), ReplaySnapshotSource{
		Root: replay.SourceNode{Type: "element", TagName: "html"},
	}, replay.Sources{})

	c.StopReplay()
	if err := c.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	if total.Load() != 1 {
		t.Fatalf("events received = %d, want 1 (the replay snapshot record, batched on stop)", total.Load())
	}
}

func TestPeriodicCollectDrainsInProgressReplayRecording(t *testing.T) {
	t.Parallel()
	var total atomic.Int32
	srv := fakeCollector(t, func(b transport.Batch) { total.Add(int32(len(b.Events))) })
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")
	c.cfg.Features.Replay = true
	// Perf capture would add one event per collect; off for an exact count.
	c.cfg.Features.Performance = false

	if err := c.Start(context.Background(), Sources{}); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	c.StartReplay(context.Background(), ReplaySnapshotSource{
		Root: replay.SourceNode{Type: "element", TagName: "html"},
	}, replay.Sources{})

	c.collectAndAdmit()
	if err := c.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if total.Load() != 1 {
		t.Fatalf("events received after mid-recording collect = %d, want 1", total.Load())
	}

	// A second collect with nothing new accumulated must not re-send.
	c.collectAndAdmit()
	if err := c.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if total.Load() != 1 {
		t.Fatalf("events received after empty collect = %d, want still 1", total.Load())
	}
}

func TestBehaviorAndErrorSourcesFlowThroughToCollector(t *testing.T) {
	t.Parallel()
	var total atomic.Int32
	srv := fakeCollector(t, func(b transport.Batch) { total.Add(int32(len(b.Events))) })
	defer srv.Close()
	c := newTestCore(t, srv.URL+"/ingest")
	// Perf capture would add one event per collect; off for an exact count.
	c.cfg.Features.Performance = false

	click := bridge.NewChan[behaviorcap.PointerSignal](1)
	runtimeErr := bridge.NewChan[errorcap.RuntimeErrorSignal](1)

	src := Sources{
		Behavior: behaviorcap.Sources{Click: click},
		Errors:   errorcap.Sources{RuntimeErrors: runtimeErr},
	}
	if err := c.Start(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	click.C <- behaviorcap.PointerSignal{Frames: []behaviorcap.ElementFrame{{Tag: "button"}}}
	runtimeErr.C <- errorcap.RuntimeErrorSignal{Message: "boom", FileName: "app.js", Line: 1, Column: 1}
	time.Sleep(30 * time.Millisecond)

	c.collectAndAdmit()
	if err := c.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	if total.Load() != 2 {
		t.Fatalf("events received = %d, want 2 (one click, one error)", total.Load())
	}
}
