package quote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockProvider returns scripted prices and counts its calls
type mockProvider struct {
	name  string
	price float64
	err   error
	calls int64
	delay time.Duration
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Fetch(ctx context.Context, code string) (float64, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return 0, m.err
	}
	return m.price, nil
}

func (m *mockProvider) callCount() int64 {
	return atomic.LoadInt64(&m.calls)
}

func TestCacheServesFreshEntry(t *testing.T) {
	provider := &mockProvider{name: "mock", price: 12.5}
	cache := NewCache([]Provider{provider}, 30*time.Second)

	q1 := cache.Get(context.Background(), "600000", false)
	q2 := cache.Get(context.Background(), "600000", false)

	if q1.Price != 12.5 || q2.Price != 12.5 {
		t.Fatalf("prices = %v, %v, want 12.5", q1.Price, q2.Price)
	}
	if q1.Source != "mock" {
		t.Errorf("source = %q, want mock", q1.Source)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1 (second read should hit cache)", provider.callCount())
	}
}

func TestCacheForceRefreshBypassesTTL(t *testing.T) {
	provider := &mockProvider{name: "mock", price: 12.5}
	cache := NewCache([]Provider{provider}, 30*time.Second)

	cache.Get(context.Background(), "600000", false)
	provider.price = 13.0
	q := cache.Get(context.Background(), "600000", true)

	if q.Price != 13.0 {
		t.Errorf("price = %v, want 13.0 after force refresh", q.Price)
	}
	if provider.callCount() != 2 {
		t.Errorf("provider calls = %d, want 2", provider.callCount())
	}
}

func TestCacheExpiredEntryRefetches(t *testing.T) {
	provider := &mockProvider{name: "mock", price: 12.5}
	cache := NewCache([]Provider{provider}, 10*time.Millisecond)

	cache.Get(context.Background(), "600000", false)
	time.Sleep(20 * time.Millisecond)
	cache.Get(context.Background(), "600000", false)

	if provider.callCount() != 2 {
		t.Errorf("provider calls = %d, want 2 after TTL expiry", provider.callCount())
	}
}

func TestCacheFallbackOrder(t *testing.T) {
	primary := &mockProvider{name: "primary", err: errors.New("down")}
	secondary := &mockProvider{name: "secondary", price: 9.9}
	cache := NewCache([]Provider{primary, secondary}, 30*time.Second)

	q := cache.Get(context.Background(), "600000", false)

	if q.Price != 9.9 || q.Source != "secondary" {
		t.Errorf("quote = %+v, want price 9.9 from secondary", q)
	}
	if primary.callCount() != 1 {
		t.Errorf("primary calls = %d, want 1", primary.callCount())
	}
}

func TestCacheStaleOnTotalFailure(t *testing.T) {
	provider := &mockProvider{name: "mock", price: 12.5}
	cache := NewCache([]Provider{provider}, time.Millisecond)

	cache.Get(context.Background(), "600000", false)
	time.Sleep(5 * time.Millisecond)
	provider.err = errors.New("down")

	q := cache.Get(context.Background(), "600000", false)
	if q.Source != SourceStale {
		t.Errorf("source = %q, want %q", q.Source, SourceStale)
	}
	if q.Price != 12.5 {
		t.Errorf("price = %v, want last known 12.5", q.Price)
	}
}

func TestCacheUnavailableWhenNeverFetched(t *testing.T) {
	provider := &mockProvider{name: "mock", err: errors.New("down")}
	cache := NewCache([]Provider{provider}, 30*time.Second)

	q := cache.Get(context.Background(), "600000", false)
	if q.Source != SourceUnavailable {
		t.Errorf("source = %q, want %q", q.Source, SourceUnavailable)
	}
	if q.Price != 0 {
		t.Errorf("price = %v, want 0", q.Price)
	}
}

func TestCacheCoalescesConcurrentLookups(t *testing.T) {
	provider := &mockProvider{name: "mock", price: 12.5, delay: 50 * time.Millisecond}
	cache := NewCache([]Provider{provider}, 30*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := cache.Get(context.Background(), "600000", true)
			if q.Price != 12.5 {
				t.Errorf("price = %v, want 12.5", q.Price)
			}
		}()
	}
	wg.Wait()

	if provider.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1 coalesced call", provider.callCount())
	}
}

func TestBatchPreservesOrder(t *testing.T) {
	provider := &mockProvider{name: "mock", price: 1.0}
	cache := NewCache([]Provider{provider}, 30*time.Second)

	codes := []string{"600000", "000001", "300750", "688001"}
	quotes := cache.Batch(context.Background(), codes, false)

	if len(quotes) != len(codes) {
		t.Fatalf("got %d quotes, want %d", len(quotes), len(codes))
	}
	for i, q := range quotes {
		if q.Code != codes[i] {
			t.Errorf("quotes[%d].Code = %q, want %q", i, q.Code, codes[i])
		}
	}
}

func TestInvalidate(t *testing.T) {
	provider := &mockProvider{name: "mock", price: 12.5}
	cache := NewCache([]Provider{provider}, 30*time.Second)

	cache.Get(context.Background(), "600000", false)
	cache.Invalidate("600000")
	cache.Get(context.Background(), "600000", false)

	if provider.callCount() != 2 {
		t.Errorf("provider calls = %d, want 2 after invalidate", provider.callCount())
	}
}
