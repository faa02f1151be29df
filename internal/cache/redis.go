package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidinfra/tariffd/internal/config"
	"github.com/vidinfra/tariffd/internal/logger"
)

// RedisCache implements the Cache interface on a shared Redis instance so that
// cached tariffs stay coherent across every application instance.
//
// Reads are bounded by the configured read timeout; a slow or unreachable
// Redis degrades to a cache miss instead of failing the request.
type RedisCache struct {
	client *redis.Client
	cfg    *config.Configuration
	log    *logger.Logger
}

// NewRedisClient creates the shared Redis client
func NewRedisClient(cfg *config.Configuration) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// NewRedisCache creates a new RedisCache instance
func NewRedisCache(client *redis.Client, cfg *config.Configuration, log *logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// Get retrieves the raw JSON payload stored under key. Values are returned as
// []byte; use GetJSON to decode into a concrete type.
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.cfg.Cache.Enabled {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Cache.ReadTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnw("cache read degraded to miss", "key", key, "error", err)
		}
		return nil, false
	}
	return raw, true
}

// Set stores the value as JSON with the given expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.cfg.Cache.Enabled {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.log.Errorw("failed to marshal cache value", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, payload, expiration).Err(); err != nil {
		c.log.Warnw("cache write failed", "key", key, "error", err)
	}
}

// Delete removes a key from the cache
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if !c.cfg.Cache.Enabled {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warnw("cache delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix removes all keys with the given prefix
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	if !c.cfg.Cache.Enabled {
		return
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Warnw("cache delete failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Warnw("cache prefix scan failed", "prefix", prefix, "error", err)
	}
}

// Flush removes all items from the cache
func (c *RedisCache) Flush(ctx context.Context) {
	if !c.cfg.Cache.Enabled {
		return
	}
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		c.log.Warnw("cache flush failed", "error", err)
	}
}
