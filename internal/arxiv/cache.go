package arxiv

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores resolved titles by arXiv id.
type Cache interface {
	Get(ctx context.Context, id string) (title string, ok bool)
	Set(ctx context.Context, id, title string)
}

const cacheKeyPrefix = "arxiv:title:"

// RedisCache keeps titles in Redis with a TTL so several instances share lookups.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed title cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, id string) (string, bool) {
	v, err := c.client.Get(ctx, cacheKeyPrefix+id).Result()
	if err != nil {
		// redis.Nil is a miss; on other errors the API is asked instead.
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, id, title string) {
	_ = c.client.Set(ctx, cacheKeyPrefix+id, title, c.ttl).Err()
}

// MemoryCache is a process-local cache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	title   string
	expires time.Time
}

// NewMemoryCache creates an in-process title cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return "", false
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		delete(c.entries, id)
		return "", false
	}
	return e.title, true
}

func (c *MemoryCache) Set(_ context.Context, id, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = memoryEntry{title: title, expires: c.now().Add(c.ttl)}
}
