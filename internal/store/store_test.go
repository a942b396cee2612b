package store

import (
	"context"
	"testing"

	"github.com/monitorcore/monitorcore/internal/event"
)

func TestMemoryGetSetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty store")
	}
	if err := m.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := m.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("Get = (%q, %v), want (v, true)", v, ok)
	}
	_ = m.Delete(ctx, "k")
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestSessionIdentityStableAcrossReads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := NewMemory()
	ident := NewSessionIdentity(kv, "app1")

	id1, err := ident.SessionID(ctx, 1000)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := ident.SessionID(ctx, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("session id changed across reads: %q != %q", id1, id2)
	}
}

func TestSetUserIDDoesNotRotateSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := NewMemory()
	sess := NewSessionIdentity(kv, "app1")
	user := NewUserIdentity(kv, "app1")

	before, _ := sess.SessionID(ctx, 1000)
	_ = user.SetUserID(ctx, "user-42")
	after, _ := sess.SessionID(ctx, 1000)

	if before != after {
		t.Fatalf("setting user id rotated session id: %q -> %q", before, after)
	}
	got, _ := user.UserID(ctx)
	if got != "user-42" {
		t.Fatalf("UserID() = %q, want user-42", got)
	}
}

func TestSpillStoreCapsAtCapacityNewestWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := NewMemory()
	spill := NewSpillStore(kv, "app1", 3, 0)

	for i := 0; i < 5; i++ {
		e := event.Event{
			Envelope: event.NewEnvelope("app1", "sess", "", event.KindError, int64(i)),
			Payload:  &event.ErrorPayload{Message: "e"},
		}
		if err := spill.Append(ctx, []event.Event{e}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := spill.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("Load() returned %d events, want 3 (capacity)", len(got))
	}
	if got[len(got)-1].Timestamp != 4 {
		t.Fatalf("newest entry timestamp = %d, want 4", got[len(got)-1].Timestamp)
	}
}

func TestSpillStoreClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := NewMemory()
	spill := NewSpillStore(kv, "app1", 10, 0)

	e := event.Event{Envelope: event.NewEnvelope("app1", "sess", "", event.KindError, 0)}
	_ = spill.Append(ctx, []event.Event{e})

	if err := spill.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	size, err := spill.Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Fatalf("Size() after Clear = %d, want 0", size)
	}
}
