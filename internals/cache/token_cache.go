// Package cache persists the single active refresh token per user in a
// TTL-capable key-value store.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efeozell/SocialMedia-API/internals/errs"
)

// TokenCache holds at most one honored refresh token per user. Storing a new
// token overwrites the previous one, which implicitly ends the prior session.
type TokenCache interface {
	StoreRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, userID string) (string, error)
	DeleteRefreshToken(ctx context.Context, userID string) error
}

// refreshTokenKey builds the cache key, e.g. "social:user:64ae...:refreshToken".
func refreshTokenKey(prefix, userID string) string {
	return fmt.Sprintf("%s:user:%s:refreshToken", prefix, userID)
}

// RedisTokenCache implements TokenCache on a redis client.
type RedisTokenCache struct {
	client *redis.Client
	prefix string
}

func NewRedisTokenCache(client *redis.Client, prefix string) *RedisTokenCache {
	return &RedisTokenCache{client: client, prefix: prefix}
}

func (c *RedisTokenCache) StoreRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return c.client.Set(ctx, refreshTokenKey(c.prefix, userID), token, ttl).Err()
}

func (c *RedisTokenCache) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	val, err := c.client.Get(ctx, refreshTokenKey(c.prefix, userID)).Result()
	if err == redis.Nil {
		return "", errs.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (c *RedisTokenCache) DeleteRefreshToken(ctx context.Context, userID string) error {
	return c.client.Del(ctx, refreshTokenKey(c.prefix, userID)).Err()
}
