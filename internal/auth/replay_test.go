package auth

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func setupTestReplayCache(t *testing.T) (*ReplayCache, func()) {
	t.Helper()

	cache, err := NewReplayCache(filepath.Join(t.TempDir(), "replay"))
	if err != nil {
		t.Fatalf("Failed to open replay cache: %v", err)
	}
	return cache, func() { cache.Close() }
}

func TestReplayCache_Remember(t *testing.T) {
	cache, cleanup := setupTestReplayCache(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	fresh, err := cache.Remember(ctx, "payload-1", now.Add(time.Minute))
	if err != nil || !fresh {
		t.Fatalf("Expected first use to be fresh, got %v, %v", fresh, err)
	}

	fresh, err = cache.Remember(ctx, "payload-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	if fresh {
		t.Error("Expected second use to be rejected")
	}

	fresh, err = cache.Remember(ctx, "payload-2", now.Add(time.Minute))
	if err != nil || !fresh {
		t.Errorf("Expected other payload to be fresh, got %v, %v", fresh, err)
	}
}

func TestReplayCache_ConcurrentRemember(t *testing.T) {
	cache, cleanup := setupTestReplayCache(t)
	defer cleanup()

	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	for round := 0; round < 50; round++ {
		payload := fmt.Sprintf("payload-%d", round)
		var accepted atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})

		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				fresh, err := cache.Remember(ctx, payload, expires)
				if err != nil {
					t.Errorf("Remember failed: %v", err)
					return
				}
				if fresh {
					accepted.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		if got := accepted.Load(); got != 1 {
			t.Fatalf("Expected payload %s to be accepted once, got %d", payload, got)
		}
	}
}

func TestReplayCache_Prune(t *testing.T) {
	cache, cleanup := setupTestReplayCache(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if _, err := cache.Remember(ctx, "old", now.Add(time.Minute)); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	if _, err := cache.Remember(ctx, "new", now.Add(time.Hour)); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}

	pruned, err := cache.Prune(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned payload, got %d", pruned)
	}

	fresh, err := cache.Remember(ctx, "old", now.Add(time.Minute))
	if err != nil || !fresh {
		t.Errorf("Expected pruned payload to be accepted again, got %v, %v", fresh, err)
	}
	fresh, err = cache.Remember(ctx, "new", now.Add(time.Hour))
	if err != nil || fresh {
		t.Errorf("Expected live payload to stay rejected, got %v, %v", fresh, err)
	}
}

func TestNewReplayCache_EmptyPath(t *testing.T) {
	if _, err := NewReplayCache("  "); err == nil {
		t.Error("Expected error for empty path")
	}
}
