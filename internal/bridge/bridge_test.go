package bridge

import (
	"context"
	"testing"
	"time"
)

func TestChainInvokesPriorBeforeOwn(t *testing.T) {
	t.Parallel()
	var order []string
	h := &Hook[int]{}

	h.Chain(func(int) { order = append(order, "first") })
	h.Chain(func(int) { order = append(order, "second") })
	h.Invoke(1)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v, want [first second]", order)
	}
}

func TestUninstallRestoresPriorReference(t *testing.T) {
	t.Parallel()
	var calls []string
	h := &Hook[int]{}

	h.Chain(func(int) { calls = append(calls, "base") })
	uninstallSecond := h.Chain(func(int) { calls = append(calls, "second") })

	uninstallSecond()
	h.Invoke(1)

	if len(calls) != 1 || calls[0] != "base" {
		t.Fatalf("calls after uninstall = %v, want [base]", calls)
	}
}

func TestChainIsolatesPanickingHandler(t *testing.T) {
	t.Parallel()
	var ran bool
	h := &Hook[int]{}
	h.Chain(func(int) { panic("boom") })
	h.Chain(func(int) { ran = true })

	h.Invoke(1) // must not panic out of Invoke

	if !ran {
		t.Fatal("handler chained after a panicking one did not run")
	}
}

func TestChanSourceDeliversUntilClosed(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewChan[int](2)
	src.C <- 1
	src.C <- 2

	ch := src.Listen(ctx)

	got := []int{<-ch, <-ch}
	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}

	src.Close()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel closed after source Close")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
