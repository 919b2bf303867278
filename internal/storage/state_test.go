package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *StateStore {
	t.Helper()
	store, err := NewStateStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewStateStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStateStore_SetGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "session", `{"identity":"alice"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := store.Get(ctx, "session")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("key should exist")
	}
	if got != `{"identity":"alice"}` {
		t.Errorf("Get = %q", got)
	}
}

func TestStateStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("missing key should report ok=false")
	}
}

func TestStateStore_SetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "k", "v2"); err != nil {
		t.Fatal(err)
	}

	got, _, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if got != "v2" {
		t.Errorf("Get = %q, want v2", got)
	}
}

func TestStateStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("deleted key should be gone")
	}
	// Deleting again is fine
	if err := store.Delete(ctx, "k"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestStateStore_DeletePrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for k, v := range map[string]string{
		"session.identity":   "alice",
		"session.credential": "tok",
		"other":              "keep",
	} {
		if err := store.Set(ctx, k, v); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DeletePrefix(ctx, "session."); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "other" {
		t.Errorf("Keys = %v, want [other]", keys)
	}
}

func TestStateStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := NewStateStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "session", "persisted"); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = NewStateStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	got, ok, err := store.Get(ctx, "session")
	if err != nil || !ok || got != "persisted" {
		t.Errorf("Get after reopen = (%q, %v, %v)", got, ok, err)
	}
}
