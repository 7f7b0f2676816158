package cache

import (
	"context"
	"encoding/json"

	"trade-journal/internal/database"
	"trade-journal/internal/logging"
)

// SettingsCache is a read-through cache over the admin_settings table.
// Reads prefer Redis and fall back to the database; writes go to the
// database first and then invalidate.
type SettingsCache struct {
	cache  *CacheService // nil when Redis is disabled
	repo   *database.Repository
	logger *logging.Logger
}

// NewSettingsCache creates a settings cache. cache may be nil, in which case
// every read hits the database.
func NewSettingsCache(cache *CacheService, repo *database.Repository) *SettingsCache {
	return &SettingsCache{
		cache:  cache,
		repo:   repo,
		logger: logging.WithComponent("cache.settings"),
	}
}

// CacheHealthy reports whether the Redis layer is present and usable
func (s *SettingsCache) CacheHealthy() bool {
	return s.cache != nil && s.cache.IsHealthy()
}

// Get returns one admin setting, database.ErrNotFound when unset
func (s *SettingsCache) Get(ctx context.Context, key string) (string, error) {
	if s.cache != nil {
		if value, ok, err := s.cache.Get(ctx, keySettingPrefix+key); err == nil && ok {
			return value, nil
		}
	}

	value, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, keySettingPrefix+key, value, DefaultSettingsTTL); err != nil && err != ErrCacheUnavailable {
			s.logger.Debug("Failed to cache setting", "key", key, "error", err)
		}
	}
	return value, nil
}

// GetAll returns every admin setting as a map
func (s *SettingsCache) GetAll(ctx context.Context) (map[string]string, error) {
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, keySettingsAll); err == nil && ok {
			var settings map[string]string
			if err := json.Unmarshal([]byte(raw), &settings); err == nil {
				return settings, nil
			}
		}
	}

	settings, err := s.repo.GetAllSettings(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(settings); err == nil {
			if err := s.cache.Set(ctx, keySettingsAll, string(raw), DefaultSettingsTTL); err != nil && err != ErrCacheUnavailable {
				s.logger.Debug("Failed to cache settings map", "error", err)
			}
		}
	}
	return settings, nil
}

// Set writes one admin setting through to the database and invalidates
func (s *SettingsCache) Set(ctx context.Context, key, value string) error {
	if err := s.repo.SetSetting(ctx, key, value); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

// Delete removes one admin setting and invalidates
func (s *SettingsCache) Delete(ctx context.Context, key string) error {
	if err := s.repo.DeleteSetting(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *SettingsCache) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, keySettingPrefix+key, keySettingsAll); err != nil && err != ErrCacheUnavailable {
		s.logger.Warn("Failed to invalidate setting", "key", key, "error", err)
	}
}
