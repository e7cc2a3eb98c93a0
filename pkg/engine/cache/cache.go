// Package cache implements the result cache (C11): a Redis-backed store for
// successful, dataframe-bearing chat responses, keyed by model.CacheKey, with
// an in-process LRU fallback so a Redis outage degrades to a cache miss
// instead of failing the request.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/database"
	"github.com/ekaya-inc/schema-intel/pkg/model"
)

// Cache is the result cache. A nil redis client (host not configured) runs
// entirely on the in-process fallback.
type Cache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	fallback *lru
}

// New builds a Cache from cfg. Returns a Cache with a nil Redis client
// (fallback-only) if cfg.Host is empty.
func New(cfg config.RedisConfig, logger *zap.Logger) (*Cache, error) {
	c := &Cache{
		ttl:      time.Duration(cfg.TTLSecs) * time.Second,
		logger:   logger.Named("engine.cache"),
		fallback: newLRU(512),
	}

	client, err := database.NewRedisClient(&cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	c.redis = client
	return c, nil
}

// Get looks up a previously cached response for key. A miss (including any
// Redis fault, which is logged and treated as a miss) returns ok=false.
func (c *Cache) Get(ctx context.Context, key string) (model.ChatResponse, bool) {
	if c.redis != nil {
		raw, err := c.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var resp model.ChatResponse
			if decodeErr := json.Unmarshal(raw, &resp); decodeErr == nil {
				return resp, true
			}
			c.logger.Warn("cache entry failed to decode, treating as miss", zap.String("key", key))
		case err != redis.Nil:
			c.logger.Warn("redis get failed, falling back to local cache", zap.Error(err))
		}
	}
	return c.fallback.get(key)
}

// Set stores resp under key if it is eligible for caching: only successful
// responses carrying a dataframe are cached. Cache faults are logged and
// swallowed; they never fail the caller's request.
func (c *Cache) Set(ctx context.Context, key string, resp model.ChatResponse) {
	if resp.Error != "" || resp.Dataframe == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("cache entry failed to encode", zap.Error(err))
		return
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("redis set failed, storing in local cache only", zap.Error(err))
		}
	}
	c.fallback.set(key, resp, c.ttl)
}

// lru is a small in-process, TTL-aware cache used when Redis is absent or
// unreachable.
type lru struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

type lruEntry struct {
	key     string
	value   model.ChatResponse
	expires time.Time
}

func newLRU(capacity int) *lru {
	return &lru{capacity: capacity, items: make(map[string]*list.Element), order: list.New()}
}

func (l *lru) get(key string) (model.ChatResponse, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.items[key]
	if !ok {
		return model.ChatResponse{}, false
	}
	entry := el.Value.(*lruEntry)
	if time.Now().After(entry.expires) {
		l.order.Remove(el)
		delete(l.items, key)
		return model.ChatResponse{}, false
	}
	l.order.MoveToFront(el)
	return entry.value, true
}

func (l *lru) set(key string, value model.ChatResponse, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ttl <= 0 {
		ttl = time.Minute
	}
	if el, ok := l.items[key]; ok {
		el.Value.(*lruEntry).value = value
		el.Value.(*lruEntry).expires = time.Now().Add(ttl)
		l.order.MoveToFront(el)
		return
	}

	el := l.order.PushFront(&lruEntry{key: key, value: value, expires: time.Now().Add(ttl)})
	l.items[key] = el

	for l.order.Len() > l.capacity {
		oldest := l.order.Back()
		if oldest == nil {
			break
		}
		l.order.Remove(oldest)
		delete(l.items, oldest.Value.(*lruEntry).key)
	}
}
