package quote

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trade-journal/internal/logging"
)

// Source tags for degraded results
const (
	SourceStale       = "stale"
	SourceUnavailable = "unavailable"
)

// Quote is one cached price sample
type Quote struct {
	Code      string    `json:"stock_code"`
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

type cacheEntry struct {
	price     float64
	source    string
	fetchedAt time.Time
}

// Cache is a TTL-bounded price cache over an ordered provider chain.
// Concurrent lookups for the same code coalesce into one upstream call.
type Cache struct {
	providers []Provider
	ttl       time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	group  singleflight.Group
	logger *logging.Logger
}

// NewCache creates a price cache backed by the given providers, tried in order
func NewCache(providers []Provider, ttl time.Duration) *Cache {
	return &Cache{
		providers: providers,
		ttl:       ttl,
		entries:   make(map[string]cacheEntry),
		logger:    logging.WithComponent("quote.cache"),
	}
}

// Get returns the price for a code. A fresh cached entry is returned unless
// force is set; otherwise the provider chain is consulted, coalesced per code.
// On total provider failure the last known price is returned tagged stale, or
// a zero-price unavailable sentinel when nothing was ever fetched.
func (c *Cache) Get(ctx context.Context, code string, force bool) Quote {
	if !force {
		if q, ok := c.lookup(code); ok {
			return q
		}
	}

	v, _, _ := c.group.Do(code, func() (interface{}, error) {
		return c.refresh(ctx, code), nil
	})
	return v.(Quote)
}

// Batch fans Get out over the codes concurrently and returns results in the
// input order. Individual failures yield sentinel entries, never an error.
func (c *Cache) Batch(ctx context.Context, codes []string, force bool) []Quote {
	results := make([]Quote, len(codes))
	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			results[i] = c.Get(ctx, code, force)
		}(i, code)
	}
	wg.Wait()
	return results
}

// Invalidate drops one cached entry
func (c *Cache) Invalidate(code string) {
	c.mu.Lock()
	delete(c.entries, code)
	c.mu.Unlock()
}

// InvalidateAll drops every cached entry
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *Cache) lookup(code string) (Quote, bool) {
	c.mu.RLock()
	entry, ok := c.entries[code]
	c.mu.RUnlock()
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return Quote{}, false
	}
	return Quote{Code: code, Price: entry.price, Source: entry.source, FetchedAt: entry.fetchedAt}, true
}

// refresh walks the provider chain and stores the first success. The entry's
// TTL clock starts at the write, not at later reads.
func (c *Cache) refresh(ctx context.Context, code string) Quote {
	for _, provider := range c.providers {
		price, err := provider.Fetch(ctx, code)
		if err != nil {
			c.logger.Debug("Provider fetch failed",
				"provider", provider.Name(), "code", code, "error", err)
			continue
		}

		now := time.Now()
		c.mu.Lock()
		c.entries[code] = cacheEntry{price: price, source: provider.Name(), fetchedAt: now}
		c.mu.Unlock()

		return Quote{Code: code, Price: price, Source: provider.Name(), FetchedAt: now}
	}

	// Every provider failed: fall back to the stored value without touching
	// its timestamp so the next read retries upstream.
	c.mu.RLock()
	entry, ok := c.entries[code]
	c.mu.RUnlock()
	if ok {
		c.logger.Warn("All providers failed, serving stale price", "code", code)
		return Quote{Code: code, Price: entry.price, Source: SourceStale, FetchedAt: entry.fetchedAt}
	}

	c.logger.Warn("All providers failed, no cached price", "code", code)
	return Quote{Code: code, Source: SourceUnavailable, FetchedAt: time.Now()}
}
