package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "view:"

// variantSeparator joins a view path with its per-caller qualifier. It must
// not be a redis glob metacharacter so invalidation patterns stay literal.
const variantSeparator = "#"

// ViewCache stores rendered response payloads keyed by view path. A path may
// carry a variant qualifier (e.g. the requesting user) so that per-caller
// renderings of the same view can be cached and invalidated together.
// Implementations degrade to cache-miss on backend failure; a cache outage
// must never fail a request.
type ViewCache interface {
	Get(ctx context.Context, path, variant string) ([]byte, bool)
	Set(ctx context.Context, path, variant string, payload []byte)
	Invalidate(ctx context.Context, paths ...string)
}

type redisViewCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRedisViewCache builds a Redis-backed view cache.
func NewRedisViewCache(client *redis.Client, logger *zap.Logger, ttl time.Duration) ViewCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisViewCache{client: client, logger: logger, ttl: ttl}
}

func (c *redisViewCache) Get(ctx context.Context, path, variant string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, viewKey(path, variant)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("view cache read failed", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

func (c *redisViewCache) Set(ctx context.Context, path, variant string, payload []byte) {
	if err := c.client.Set(ctx, viewKey(path, variant), payload, c.ttl).Err(); err != nil {
		c.logger.Debug("view cache write failed", zap.String("path", path), zap.Error(err))
	}
}

// Invalidate removes the cached rendering for each path together with every
// per-caller variant of it.
func (c *redisViewCache) Invalidate(ctx context.Context, paths ...string) {
	for _, path := range paths {
		keys := []string{viewKey(path, "")}

		pattern := keyPrefix + path + variantSeparator + "*"
		iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			c.logger.Debug("view cache scan failed", zap.String("path", path), zap.Error(err))
		}

		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Debug("view cache invalidation failed", zap.String("path", path), zap.Error(err))
		}
	}
}

func viewKey(path, variant string) string {
	if variant == "" {
		return keyPrefix + path
	}
	return keyPrefix + path + variantSeparator + variant
}
