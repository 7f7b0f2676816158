// Package cache provides Redis-backed caching for admin settings with
// graceful degradation: when Redis is unavailable, callers fall back to
// database reads.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trade-journal/config"
	"trade-journal/internal/logging"
)

// ErrCacheUnavailable is returned when Redis is down or circuit-broken
var ErrCacheUnavailable = fmt.Errorf("cache unavailable")

// Cache key layout
const (
	keySettingPrefix = "settings:"
	keySettingsAll   = "settings:all"
)

// DefaultSettingsTTL bounds how long a cached admin setting may lag a
// direct database write from another process
const DefaultSettingsTTL = 5 * time.Minute

// CacheService wraps a Redis client with a small circuit breaker. A run of
// failures marks the client unhealthy; a later successful ping recovers it.
type CacheService struct {
	client *redis.Client
	logger *logging.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

// NewCacheService connects to Redis. A failed initial connection returns the
// service in degraded mode rather than an error.
func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	cs := &CacheService{
		client:        client,
		logger:        logging.WithComponent("cache"),
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		cs.logger.Warn("Initial Redis connection failed, running degraded", "error", err)
		return cs, nil
	}

	cs.healthy = true
	cs.lastCheck = time.Now()
	cs.logger.Info("Redis connected", "address", cfg.Address)
	return cs, nil
}

// IsHealthy reports whether Redis is currently usable, probing for recovery
// at most once per check interval
func (cs *CacheService) IsHealthy() bool {
	cs.mu.RLock()
	healthy := cs.healthy
	lastCheck := cs.lastCheck
	cs.mu.RUnlock()

	if healthy || time.Since(lastCheck) < cs.checkInterval {
		return healthy
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.lastCheck = time.Now()
	if err := cs.client.Ping(ctx).Err(); err == nil {
		cs.logger.Info("Redis recovered")
		cs.healthy = true
		cs.failureCount = 0
	}
	return cs.healthy
}

func (cs *CacheService) recordFailure() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.failureCount++
	if cs.failureCount >= cs.maxFailures && cs.healthy {
		cs.logger.Warn("Redis marked unhealthy", "failures", cs.failureCount)
		cs.healthy = false
		cs.lastCheck = time.Now()
	}
}

func (cs *CacheService) recordSuccess() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.failureCount = 0
}

// Get reads one key, distinguishing a miss (empty, nil error) from an outage
func (cs *CacheService) Get(ctx context.Context, key string) (string, bool, error) {
	if !cs.IsHealthy() {
		return "", false, ErrCacheUnavailable
	}

	value, err := cs.client.Get(ctx, key).Result()
	if err == redis.Nil {
		cs.recordSuccess()
		return "", false, nil
	}
	if err != nil {
		cs.recordFailure()
		return "", false, err
	}
	cs.recordSuccess()
	return value, true, nil
}

// Set writes one key with a TTL
func (cs *CacheService) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !cs.IsHealthy() {
		return ErrCacheUnavailable
	}
	if err := cs.client.Set(ctx, key, value, ttl).Err(); err != nil {
		cs.recordFailure()
		return err
	}
	cs.recordSuccess()
	return nil
}

// Delete removes keys
func (cs *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !cs.IsHealthy() {
		return ErrCacheUnavailable
	}
	if err := cs.client.Del(ctx, keys...).Err(); err != nil {
		cs.recordFailure()
		return err
	}
	cs.recordSuccess()
	return nil
}

// Close releases the Redis connection
func (cs *CacheService) Close() error {
	return cs.client.Close()
}
