// Command monitor-demo wires a fake bridge source and a fake in-process
// collector around the core orchestrator and drives one
// start -> capture -> flush -> stop cycle, the way the teacher's cmd/
// binaries call into its internal/ packages rather than being a
// standalone application in their own right.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/monitorcore/monitorcore/internal/bridge"
	"github.com/monitorcore/monitorcore/internal/capture/behaviorcap"
	"github.com/monitorcore/monitorcore/internal/capture/errorcap"
	"github.com/monitorcore/monitorcore/internal/config"
	"github.com/monitorcore/monitorcore/internal/orchestrator"
	"github.com/monitorcore/monitorcore/internal/store"
	"github.com/monitorcore/monitorcore/internal/transport"
)

func main() {
	collector := fakeCollector()
	defer collector.Close()

	cfg := config.Default()
	cfg.AppID = "demo-app"
	cfg.APIKey = "demo-key"
	cfg.Endpoint = collector.URL + "/ingest"
	cfg.Reporting.FlushInterval = time.Hour // drive flush() explicitly below
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	core := orchestrator.New(cfg, store.NewMemory())

	click := bridge.NewChan[behaviorcap.PointerSignal](1)
	runtimeErr := bridge.NewChan[errorcap.RuntimeErrorSignal](1)
	src := orchestrator.Sources{
		Behavior: behaviorcap.Sources{Click: click},
		Errors:   errorcap.Sources{RuntimeErrors: runtimeErr},
	}

	ctx := context.Background()
	if err := core.Start(ctx, src); err != nil {
		log.Fatalf("start: %v", err)
	}

	click.C <- behaviorcap.PointerSignal{
		Frames: []behaviorcap.ElementFrame{{Tag: "button", ID: "buy"}},
		X:      10, Y: 20, HasXY: true,
	}
	runtimeErr.C <- errorcap.RuntimeErrorSignal{
		Message: "TypeError: cannot read property of undefined", FileName: "app.js", Line: 42, Column: 7,
	}
	time.Sleep(50 * time.Millisecond)

	if err := core.Flush(ctx); err != nil {
		log.Printf("flush: %v", err)
	}

	status := core.GetStatus()
	fmt.Printf("session=%s running=%v queueSize=%d\n", status.SessionID, status.Running, status.QueueSize)

	core.Stop()
}

func fakeCollector() *httptest.Server {
	r := chi.NewRouter()
	r.Post("/ingest", func(w http.ResponseWriter, req *http.Request) {
		var batch transport.Batch
		if err := json.NewDecoder(req.Body).Decode(&batch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Printf("collector received %d event(s)\n", len(batch.Events))
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(r)
}
