package service

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"personas/internal/consultas/models"
)

// MemoryCache is the process-local statistics cache used when Redis is not
// configured.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache expires entries after ttl and sweeps every 2*ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.Statistics, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	stats, ok := v.(*models.Statistics)
	if !ok {
		return nil, false
	}
	return stats.Clone(), true
}

func (c *MemoryCache) Set(_ context.Context, key string, stats *models.Statistics) {
	c.cache.SetDefault(key, stats.Clone())
}
