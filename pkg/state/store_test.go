package state

import (
	"context"
	"sync"
	"testing"

	"github.com/agentwire/go-sdk/pkg/core"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, "thread-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected miss for unknown thread")
	}

	snapshot := ThreadSnapshot{
		Messages: []core.Message{{ID: "m1", Role: core.RoleUser, Content: core.TextContent("hi")}},
		State:    map[string]any{"counter": 1.0},
	}
	if err := store.Set(ctx, "thread-1", snapshot); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, ok, err := store.Get(ctx, "thread-1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got.Messages) != 1 || got.Messages[0].ID != "m1" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}

	// Mutating the returned snapshot must not affect the stored one.
	got.Messages[0].ID = "mutated"
	again, _, _ := store.Get(ctx, "thread-1")
	if again.Messages[0].ID != "m1" {
		t.Error("stored snapshot was mutated through a Get result")
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.Set(ctx, "thread-1", ThreadSnapshot{State: map[string]any{"v": 1.0}})
	_ = store.Set(ctx, "thread-1", ThreadSnapshot{State: map[string]any{"v": 2.0}})

	got, _, _ := store.Get(ctx, "thread-1")
	if got.State.(map[string]any)["v"] != 2.0 {
		t.Errorf("expected last write to win, got %v", got.State)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set(ctx, "thread-1", ThreadSnapshot{State: map[string]any{"v": 1.0}})
			_, _, _ = store.Get(ctx, "thread-1")
		}()
	}
	wg.Wait()
}
