package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCache_SetAndGet(t *testing.T) {
	cache := New()
	defer cache.Stop()

	cache.Set("quote:TSLA", "250.10", 5*time.Second)

	got, ok := cache.Get("quote:TSLA")
	if !ok {
		t.Fatal("Get() should return ok=true for existing key")
	}
	if got != "250.10" {
		t.Errorf("Get() = %v, want 250.10", got)
	}
}

func TestCache_GetNonExistent(t *testing.T) {
	cache := New()
	defer cache.Stop()

	got, ok := cache.Get("non-existent")
	if ok {
		t.Error("Get() should return ok=false for non-existent key")
	}
	if got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := New()
	defer cache.Stop()

	cache.Set("expiring", "v", 50*time.Millisecond)

	if _, ok := cache.Get("expiring"); !ok {
		t.Error("Key should exist before TTL expiration")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("expiring"); ok {
		t.Error("Key should be expired after TTL")
	}
}

func TestCache_NonPositiveTTL(t *testing.T) {
	cache := New()
	defer cache.Stop()

	cache.Set("zero", "v", 0)
	cache.Set("negative", "v", -time.Second)

	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	cache := New()
	defer cache.Stop()

	cache.Set("delete-key", "v", time.Hour)
	cache.Delete("delete-key")

	if _, ok := cache.Get("delete-key"); ok {
		t.Error("Key should not exist after delete")
	}
}

func TestCache_Overwrite(t *testing.T) {
	cache := New()
	defer cache.Stop()

	cache.Set("k", "value1", time.Hour)
	cache.Set("k", "value2", time.Hour)

	if got, _ := cache.Get("k"); got != "value2" {
		t.Errorf("Get() = %v, want value2 after overwrite", got)
	}
}

func TestCache_SweeperRemovesExpired(t *testing.T) {
	cache := NewWithContext(context.Background(), Options{CleanupInterval: 10 * time.Millisecond})
	defer cache.Stop()

	cache.Set("short", "v", time.Millisecond)
	cache.Set("long", "v", time.Hour)

	deadline := time.Now().Add(time.Second)
	for cache.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after sweep", cache.Len())
	}
}

func TestCache_StopTwice(t *testing.T) {
	cache := New()
	cache.Stop()
	cache.Stop()
}

func TestCache_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cache := NewWithContext(ctx, Options{})

	cache.Set("ctx-key", "ctx-value", time.Hour)
	cancel()

	// sweeper exits on cancel, Stop must not block
	cache.Stop()

	if got, ok := cache.Get("ctx-key"); !ok || got != "ctx-value" {
		t.Error("Cache should still serve reads after the sweeper exits")
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := New()
	defer cache.Stop()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			cache.Set("concurrent-key", i, time.Hour)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			cache.Get("concurrent-key")
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			cache.Delete("concurrent-key")
			time.Sleep(time.Microsecond)
		}
	}()

	wg.Wait()
}
