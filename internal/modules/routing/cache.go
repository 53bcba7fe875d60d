// README: Route result caches: in-process TTL map and optional Redis layer.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"ride/internal/types"
)

type cacheEntry struct {
	result   types.RouteResult
	storedAt time.Time
}

// memoryCache grows freely and is pruned of expired entries once it passes maxItems.
type memoryCache struct {
	mu       sync.Mutex
	items    map[string]cacheEntry
	ttl      time.Duration
	maxItems int
	clock    clockwork.Clock
}

func newMemoryCache(ttl time.Duration, maxItems int, clock clockwork.Clock) *memoryCache {
	return &memoryCache{items: make(map[string]cacheEntry), ttl: ttl, maxItems: maxItems, clock: clock}
}

func (c *memoryCache) Get(key string) (types.RouteResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return types.RouteResult{}, false
	}
	if c.clock.Since(e.storedAt) >= c.ttl {
		delete(c.items, key)
		return types.RouteResult{}, false
	}
	return e.result.Clone(), true
}

func (c *memoryCache) Set(key string, res types.RouteResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	c.items[key] = cacheEntry{result: res.Clone(), storedAt: now}
	if len(c.items) > c.maxItems {
		for k, e := range c.items {
			if now.Sub(e.storedAt) >= c.ttl {
				delete(c.items, k)
			}
		}
	}
}

func (c *memoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// SharedCache is a cross-process cache layer consulted after the in-process map.
type SharedCache interface {
	Get(ctx context.Context, key string) (types.RouteResult, bool, error)
	Set(ctx context.Context, key string, res types.RouteResult, ttl time.Duration) error
}

const redisKeyPrefix = "ride:route:"

type RedisCache struct {
	redis *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{redis: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (types.RouteResult, bool, error) {
	b, err := c.redis.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.RouteResult{}, false, nil
	}
	if err != nil {
		return types.RouteResult{}, false, err
	}
	var res types.RouteResult
	if err := json.Unmarshal(b, &res); err != nil {
		return types.RouteResult{}, false, err
	}
	return res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, res types.RouteResult, ttl time.Duration) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, redisKeyPrefix+key, b, ttl).Err()
}
