package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"nursery-tracker/internal/repository"
)

func setupStore(t *testing.T) repository.CredentialStore {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewCredentialStore(db)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return store
}

func TestCredentialStoreRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, repository.KeyToken, "t1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	value, ok, err := store.Get(ctx, repository.KeyToken)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != "t1" {
		t.Fatalf("get = (%q, %v), want (t1, true)", value, ok)
	}
}

func TestCredentialStoreOverwrite(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, repository.KeyToken, "old"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, repository.KeyToken, "new"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, ok, err := store.Get(ctx, repository.KeyToken)
	if err != nil || !ok {
		t.Fatalf("get = (%q, %v, %v)", value, ok, err)
	}
	if value != "new" {
		t.Errorf("value = %q, want new", value)
	}
}

func TestCredentialStoreMissingKey(t *testing.T) {
	store := setupStore(t)

	value, ok, err := store.Get(context.Background(), repository.KeyUsername)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || value != "" {
		t.Errorf("missing key should report absent, got (%q, %v)", value, ok)
	}
}

func TestCredentialStoreDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, repository.KeyUsername, "alice"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Delete(ctx, repository.KeyUsername); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// deleting an absent key is fine
	if err := store.Delete(ctx, repository.KeyUsername); err != nil {
		t.Fatalf("delete absent: %v", err)
	}

	_, ok, err := store.Get(ctx, repository.KeyUsername)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("deleted key should be absent")
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state", "nursery.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
