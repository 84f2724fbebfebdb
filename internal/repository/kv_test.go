package repository

import (
	"context"
	"testing"
)

func TestKVStore_SetGetOverwrite(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	kv := db.KVStore("prefs")

	if _, ok, err := kv.Get(ctx, "theme"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := kv.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set(ctx, "theme", "light"); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}

	v, ok, err := kv.Get(ctx, "theme")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if v != "light" {
		t.Errorf("expected 'light', got %q", v)
	}
}

func TestKVStore_Delete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	kv := db.KVStore("prefs")

	if err := kv.Set(ctx, "layer", "satellite"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Delete(ctx, "layer"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "layer"); ok {
		t.Error("expected key to be deleted")
	}
	if err := kv.Delete(ctx, "never-set"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestKVStore_ClearIsNamespaced(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	mine := db.KVStore("prefs")
	theirs := db.KVStore("other")

	_ = mine.Set(ctx, "a", "1")
	_ = mine.Set(ctx, "b", "2")
	_ = theirs.Set(ctx, "a", "keep")

	if err := mine.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, ok, _ := mine.Get(ctx, "a"); ok {
		t.Error("expected prefs:a cleared")
	}
	if _, ok, _ := mine.Get(ctx, "b"); ok {
		t.Error("expected prefs:b cleared")
	}
	if v, ok, _ := theirs.Get(ctx, "a"); !ok || v != "keep" {
		t.Errorf("other namespace should survive Clear, got %q ok=%v", v, ok)
	}
}
