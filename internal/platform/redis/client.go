// Package redis connects the optional shared statistics cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"personas/internal/platform/config"
)

const defaultPingTimeout = 5 * time.Second

// Client is the connected cache backend.
type Client struct {
	*redis.Client
}

// New connects to cfg.URL and pings it. An empty URL means the cache is not
// configured and yields a nil client.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	timeout := opts.DialTimeout + opts.ReadTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Options parses cfg.URL and layers the pool and timeout settings over it.
// Zero settings keep the go-redis defaults.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
