package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_BasicOperations(t *testing.T) {
	cache := NewCache[string, string]()

	t.Run("Set and Get", func(t *testing.T) {
		cache.Set("test-key", "test-value")

		got, exists := cache.Get("test-key")
		if !exists {
			t.Error("Expected key to exist")
		}
		if got != "test-value" {
			t.Errorf("Expected %q, got %q", "test-value", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		if _, exists := cache.Get("non-existent"); exists {
			t.Error("Expected key to not exist")
		}
	})

	t.Run("Delete and Len", func(t *testing.T) {
		cache.Set("a", "1")
		before := cache.Len()
		cache.Delete("a")
		if cache.Len() != before-1 {
			t.Errorf("Expected length %d, got %d", before-1, cache.Len())
		}
		cache.Delete("never-set") // Should not panic
	})

	t.Run("Clear", func(t *testing.T) {
		cache.Set("x", "y")
		cache.Clear()
		if cache.Len() != 0 {
			t.Errorf("Expected empty cache, got %d items", cache.Len())
		}
	})
}

func TestCache_GetOrSet(t *testing.T) {
	cache := NewCache[int, string]()
	calls := 0
	fn := func() string {
		calls++
		return "computed"
	}

	if v := cache.GetOrSet(1, fn); v != "computed" {
		t.Errorf("Expected computed, got %q", v)
	}
	if v := cache.GetOrSet(1, fn); v != "computed" {
		t.Errorf("Expected computed, got %q", v)
	}
	if calls != 1 {
		t.Errorf("Expected fn to run once, ran %d times", calls)
	}
}

func TestCache_Concurrency(t *testing.T) {
	cache := NewCache[int, string]()
	const numGoroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cache.Set(i, fmt.Sprintf("v%d", i))
			cache.Get(i)
			if i%2 == 0 {
				cache.Delete(i)
			}
		}(i)
	}
	wg.Wait()

	if cache.Len() != numGoroutines/2 {
		t.Errorf("Expected %d items, got %d", numGoroutines/2, cache.Len())
	}
}

func TestRenderedCache(t *testing.T) {
	ClearRendered()

	if _, ok := GetRendered("hash", "monokai"); ok {
		t.Fatal("Expected empty rendered cache")
	}

	SetRendered("hash", "monokai", "<p>dark</p>")
	SetRendered("hash", "github", "<p>light</p>")

	if got, ok := GetRendered("hash", "monokai"); !ok || got != "<p>dark</p>" {
		t.Errorf("Expected dark rendering, got %q (found=%v)", got, ok)
	}
	if got, ok := GetRendered("hash", "github"); !ok || got != "<p>light</p>" {
		t.Errorf("Expected light rendering, got %q (found=%v)", got, ok)
	}
}

func TestAssetCaches(t *testing.T) {
	SetStaticHash("/static/app.css", "abc")
	if h, ok := GetStaticHash("/static/app.css"); !ok || h != "abc" {
		t.Errorf("Expected static hash abc, got %q", h)
	}

	SetSyntaxCSS("monokai", ".chroma{}")
	if css, ok := GetSyntaxCSS("monokai"); !ok || css != ".chroma{}" {
		t.Errorf("Expected cached css, got %q", css)
	}
}

type cachedPost struct {
	ID    int64
	Title string
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute, time.Minute)

	t.Run("Miss", func(t *testing.T) {
		var p cachedPost
		found, err := s.Get(ctx, "missing", &p)
		if err != nil || found {
			t.Errorf("Expected clean miss, got found=%v err=%v", found, err)
		}
	})

	t.Run("Round trip copies the value", func(t *testing.T) {
		in := &cachedPost{ID: 1, Title: "hello"}
		if err := s.Set(ctx, "post:1", in); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		in.Title = "mutated"

		var out cachedPost
		found, err := s.Get(ctx, "post:1", &out)
		if err != nil || !found {
			t.Fatalf("Expected hit, got found=%v err=%v", found, err)
		}
		if out.Title != "hello" {
			t.Errorf("Expected stored copy 'hello', got %q", out.Title)
		}
	})

	t.Run("Delete and Flush", func(t *testing.T) {
		s.Set(ctx, "a", 1)
		s.Set(ctx, "b", 2)
		s.Delete(ctx, "a")

		var n int
		if found, _ := s.Get(ctx, "a", &n); found {
			t.Error("Expected a to be deleted")
		}
		if found, _ := s.Get(ctx, "b", &n); !found || n != 2 {
			t.Errorf("Expected b=2, got %d (found=%v)", n, found)
		}

		s.Flush(ctx)
		if s.ItemCount() != 0 {
			t.Errorf("Expected empty store, got %d items", s.ItemCount())
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		short := NewMemoryStore(10*time.Millisecond, time.Minute)
		short.Set(ctx, "k", "v")
		time.Sleep(30 * time.Millisecond)
		var v string
		if found, _ := short.Get(ctx, "k", &v); found {
			t.Error("Expected value to expire")
		}
	})
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(context.Background(), StoreOptions{Driver: "memory", TTL: time.Minute, CleanupInterval: time.Minute})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("Expected *MemoryStore, got %T", s)
	}

	if _, err := NewStore(context.Background(), StoreOptions{Driver: "memcached"}); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
