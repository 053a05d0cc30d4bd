package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// BlacklistCache keeps revoked token ids in Redis with a TTL equal to
// the token's remaining lifetime, so the hot verification path stays a
// single point lookup. Postgres remains the durable record; a cache
// miss falls through to it.
type BlacklistCache struct {
	client *redis.Client
}

func NewBlacklistCache(client *redis.Client) *BlacklistCache {
	return &BlacklistCache{client: client}
}

func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

func (c *BlacklistCache) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already past the token's own expiry; nothing to cache.
		return nil
	}

	if err := c.client.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache blacklisted token: %w", err)
	}

	return nil
}

func (c *BlacklistCache) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist cache: %w", err)
	}

	return n > 0, nil
}
