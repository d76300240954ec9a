package crossedpaths

import (
	"context"
	"time"

	"github.com/Durgaprasad40/mira-nearby/internal/storage"
)

// redisCooldowns keeps cooldown state as keys with TTLs, so expiry does the
// forward-only bookkeeping for free.
type redisCooldowns struct {
	redis storage.RedisClient
}

func NewRedisCooldowns(redisClient storage.RedisClient) CooldownStore {
	return &redisCooldowns{redis: redisClient}
}

func (c *redisCooldowns) Active(ctx context.Context, key string) (bool, error) {
	count, err := c.redis.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (c *redisCooldowns) Mark(ctx context.Context, key string, ttl time.Duration) error {
	return c.redis.Set(ctx, key, time.Now().Unix(), ttl)
}

func (c *redisCooldowns) Clear(ctx context.Context, key string) error {
	return c.redis.Del(ctx, key)
}
