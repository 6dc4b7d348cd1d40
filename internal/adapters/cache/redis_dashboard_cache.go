package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDashboardCache shares dashboards between server replicas. Values are
// plain keys with a TTL; a sorted set scored by expiry bounds the entry count.
type RedisDashboardCache struct {
	client   redis.Cmdable
	prefix   string
	capacity int
	now      func() time.Time
}

func NewRedisDashboardCache(client redis.Cmdable, prefix string, capacity int) *RedisDashboardCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if prefix == "" {
		prefix = "yardkpi:"
	}
	return &RedisDashboardCache{client: client, prefix: prefix, capacity: capacity, now: time.Now}
}

func (c *RedisDashboardCache) valueKey(key string) string { return c.prefix + "v:" + key }
func (c *RedisDashboardCache) indexKey() string { return c.prefix + "expiry" }

func (c *RedisDashboardCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.valueKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis dashboard cache: get %q: %w", key, err)
	}
	return b, true, nil
}

func (c *RedisDashboardCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Delete(ctx, key)
	}

	if err := c.makeRoom(ctx, key); err != nil {
		return fmt.Errorf("redis dashboard cache: set %q: %w", key, err)
	}

	expires := c.now().Add(ttl)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.valueKey(key), value, ttl)
		pipe.ZAdd(ctx, c.indexKey(), redis.Z{Score: float64(expires.UnixMilli()), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis dashboard cache: set %q: %w", key, err)
	}
	return nil
}

func (c *RedisDashboardCache) Delete(ctx context.Context, key string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.valueKey(key))
		pipe.ZRem(ctx, c.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis dashboard cache: delete %q: %w", key, err)
	}
	return nil
}

// makeRoom runs before key is written. Overwrites never evict. Otherwise it
// drops expired index members, then pops the earliest expiring entries until
// one slot is free, so the entry being written always survives.
func (c *RedisDashboardCache) makeRoom(ctx context.Context, key string) error {
	err := c.client.ZScore(ctx, c.indexKey(), key).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("check entry: %w", err)
	}

	now := fmt.Sprintf("%d", c.now().UnixMilli())
	if err := c.client.ZRemRangeByScore(ctx, c.indexKey(), "-inf", now).Err(); err != nil {
		return fmt.Errorf("purge expired: %w", err)
	}

	n, err := c.client.ZCard(ctx, c.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("count entries: %w", err)
	}
	over := n - int64(c.capacity) + 1
	if over <= 0 {
		return nil
	}

	popped, err := c.client.ZPopMin(ctx, c.indexKey(), over).Result()
	if err != nil {
		return fmt.Errorf("evict: %w", err)
	}
	keys := make([]string, 0, len(popped))
	for _, z := range popped {
		if m, ok := z.Member.(string); ok {
			keys = append(keys, c.valueKey(m))
		}
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("evict: %w", err)
		}
	}
	return nil
}
