package cache

import (
	"context"
	"time"
)

// l1BackfillTTL bounds how long an entry promoted from Redis may sit
// in process, so L1 cannot outlive the Redis entry by much.
const l1BackfillTTL = time.Minute

// LayeredCache serves reads from an in-process LRU and falls back to
// Redis. Writes go through to Redis first.
type LayeredCache struct {
	mem   *memoryCache
	redis *RedisCache
}

var _ Service = (*LayeredCache)(nil)

// NewLayeredCache wraps redisCache with an in-process layer.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryEntries: 1000}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		mem:   newMemoryCache(cfg.MemoryEntries),
		redis: redisCache,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	if err := lc.redis.setBytes(ctx, key, data, ttl); err != nil {
		return err
	}
	lc.mem.set(key, data, ttl)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, ok := lc.mem.get(key); ok {
		return decodeValue(data, dest)
	}
	data, err := lc.redis.getBytes(ctx, key)
	if err != nil {
		return err
	}
	lc.mem.set(key, data, l1BackfillTTL)
	return decodeValue(data, dest)
}

// DeleteByPattern flushes the whole in-process layer; only Redis has
// the key space to match the pattern against.
func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	lc.mem.flush()
	return lc.redis.DeleteByPattern(ctx, pattern)
}

// TryLock goes straight to Redis; a lock held in one process only is
// no lock at all.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.redis.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	lc.mem.delete(key)
	return lc.redis.Unlock(ctx, key)
}

// Close stops the in-process janitor and closes the Redis connection.
func (lc *LayeredCache) Close() error {
	lc.mem.stop()
	return lc.redis.Close()
}
