package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"codstore.dev/storefront/pkg/models"
)

const settingsKey = "all"

// SettingsCache holds the full settings list for a bounded time. Writers must
// call Invalidate after every change.
type SettingsCache struct {
	cache *Cache
}

func NewSettingsCache(client *redis.Client, ttl time.Duration) *SettingsCache {
	return &SettingsCache{cache: NewCache(client, "settings:", ttl)}
}

func (c *SettingsCache) Get(ctx context.Context) ([]models.Setting, bool, error) {
	var settings []models.Setting
	ok, err := c.cache.Get(ctx, settingsKey, &settings)
	if err != nil || !ok {
		return nil, false, err
	}
	return settings, true, nil
}

func (c *SettingsCache) Set(ctx context.Context, settings []models.Setting) error {
	return c.cache.Set(ctx, settingsKey, settings)
}

func (c *SettingsCache) Invalidate(ctx context.Context) error {
	return c.cache.Delete(ctx, settingsKey)
}
