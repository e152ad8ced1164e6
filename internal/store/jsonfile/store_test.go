package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hay-kot/reactions/internal/core/kv"
)

func TestStore_SetAndGet(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "device.json"))
	ctx := context.Background()

	if err := store.Set(ctx, "animated-reactions-sender-id", "sender_abc_123"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, err := store.Get(ctx, "animated-reactions-sender-id")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Value != "sender_abc_123" {
		t.Errorf("Value = %q, want %q", entry.Value, "sender_abc_123")
	}
	if entry.CreatedAt.IsZero() || entry.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestStore_GetNotFound(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "device.json"))

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, kv.ErrKeyNotFound) {
		t.Errorf("Get error = %v, want ErrKeyNotFound", err)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device.json")
	ctx := context.Background()

	if err := New(path).Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, err := New(path).Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if entry.Value != "v" {
		t.Errorf("Value = %q, want %q", entry.Value, "v")
	}
}

func TestStore_UpdatePreservesCreatedAt(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "device.json"))
	ctx := context.Background()

	_ = store.Set(ctx, "key", "one")
	first, _ := store.Get(ctx, "key")
	time.Sleep(10 * time.Millisecond)
	_ = store.Set(ctx, "key", "two")
	second, _ := store.Get(ctx, "key")

	if second.Value != "two" {
		t.Errorf("Value = %q, want %q", second.Value, "two")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt not advanced: %v <= %v", second.UpdatedAt, first.UpdatedAt)
	}
}

func TestStore_Delete(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "device.json"))
	ctx := context.Background()

	_ = store.Set(ctx, "key", "value")
	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "key"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Errorf("Get after delete error = %v, want ErrKeyNotFound", err)
	}
	if err := store.Delete(ctx, "key"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Errorf("second Delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "device.json"))
	ctx := context.Background()

	const goroutines = 8
	const iterations = 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j)
				if err := store.Set(ctx, key, "value"); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
				if _, err := store.Get(ctx, key); err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		for j := 0; j < iterations; j++ {
			if _, err := store.Get(ctx, fmt.Sprintf("key-%d-%d", i, j)); err != nil {
				t.Fatalf("missing key-%d-%d: %v", i, j, err)
			}
		}
	}
}

func TestStore_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	if err := os.WriteFile(path, []byte("{invalid json"), 0o644); err != nil {
		t.Fatalf("write corrupted file: %v", err)
	}

	store := New(path)
	ctx := context.Background()

	if _, err := store.Get(ctx, "any"); err == nil {
		t.Error("expected error for corrupted JSON")
	}
	if err := store.Set(ctx, "key", "value"); err == nil {
		t.Error("expected error for Set with corrupted file")
	}
}
