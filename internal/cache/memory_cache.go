package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"upendo/backend/internal/domain"
)

// MemorySummaryCache is a process-local cache for single-instance and test
// setups. Reads never extend an entry's lifetime.
type MemorySummaryCache struct {
	items *ttlcache.Cache[string, domain.DashboardSummary]
}

func NewMemorySummaryCache() *MemorySummaryCache {
	return &MemorySummaryCache{
		items: ttlcache.New[string, domain.DashboardSummary](
			ttlcache.WithDisableTouchOnHit[string, domain.DashboardSummary](),
		),
	}
}

func (c *MemorySummaryCache) Get(_ context.Context, key string) (*domain.DashboardSummary, bool, error) {
	item := c.items.Get(key)
	if item == nil {
		return nil, false, nil
	}
	value := item.Value()
	return &value, true, nil
}

func (c *MemorySummaryCache) Set(_ context.Context, key string, value *domain.DashboardSummary, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.items.Set(key, *value, ttl)
	return nil
}

func (c *MemorySummaryCache) Invalidate(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.items.Delete(key)
	}
	return nil
}
