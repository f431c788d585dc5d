package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"personas/internal/consultas/models"
	"personas/pkg/requestcontext"
)

// RedisCache shares the statistics summary across instances. Entries are JSON
// encoded and expire after ttl.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.Statistics, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "statistics cache read failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, false
	}
	var stats models.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.WarnContext(ctx, "statistics cache entry corrupt",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, false
	}
	return &stats, true
}

func (c *RedisCache) Set(ctx context.Context, key string, stats *models.Statistics) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "statistics cache write failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}
