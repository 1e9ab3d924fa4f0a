package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestProvider(t *testing.T) *MemoryProvider {
	t.Helper()
	p, err := NewMemoryProvider()
	if err != nil {
		t.Fatalf("NewMemoryProvider() error = %v", err)
	}
	return p
}

func TestMemoryProviderExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newTestProvider(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	if err := p.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, err := p.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("Get() = %q, %v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryProviderSetIfAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newTestProvider(t)

	ok, err := p.SetIfAbsent(ctx, "k", "first", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetIfAbsent() = %v, %v", ok, err)
	}
	ok, err = p.SetIfAbsent(ctx, "k", "second", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetIfAbsent() = %v, %v", ok, err)
	}
	if got, _ := p.Get(ctx, "k"); got != "first" {
		t.Fatalf("Get() = %q, want first", got)
	}

	if err := p.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	ok, _ = p.SetIfAbsent(ctx, "k", "third", time.Minute)
	if !ok {
		t.Fatal("SetIfAbsent() after delete should succeed")
	}
}

func TestMemoryProviderSetIfAbsentConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newTestProvider(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := p.SetIfAbsent(ctx, "claim", "x", time.Minute); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("wins = %d, want 1", wins.Load())
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	if got := WebhookKey("stripe", "evt_1"); got != "webhook:stripe:evt_1" {
		t.Fatalf("WebhookKey() = %q", got)
	}
	if got := CheckoutKey("u1", "abc"); got != "checkout:u1:abc" {
		t.Fatalf("CheckoutKey() = %q", got)
	}
}

func TestNewProviderRejectsUnknown(t *testing.T) {
	t.Parallel()

	if _, err := NewProvider(Config{Provider: "memcached"}); err == nil {
		t.Fatal("expected error")
	}
}
