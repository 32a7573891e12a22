package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "fincast"
	poolSize     = 10
	minIdleConns = 5
	poolTimeout  = 30 * time.Second
	pingTimeout  = 5 * time.Second
	scanBatch    = 200
)

// RedisCache is the Redis-backed Service implementation.
type RedisCache struct {
	client *redis.Client
}

var _ Service = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(opts ...RedisOption) (*RedisCache, error) {
	cfg := &RedisConfig{
		Host: "localhost",
		Port: 6379,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		PoolTimeout:  poolTimeout,
		MinIdleConns: minIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Client exposes the underlying connection for components that share
// it, such as the job queue.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	return c.setBytes(ctx, key, data, ttl)
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.getBytes(ctx, key)
	if err != nil {
		return err
	}
	return decodeValue(data, dest)
}

// DeleteByPattern unlinks every key matching the glob pattern. SCAN
// keeps the server responsive on large key spaces.
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, wrapKey(pattern), scanBatch).Iterator()
	keys := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanBatch {
			if err := c.client.Unlink(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Unlink(ctx, keys...).Err()
	}
	return nil
}

// TryLock claims key atomically. False means another holder owns the
// lock; it expires on its own after ttl.
func (c *RedisCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, wrapKey(key), "1", ttl).Result()
}

// Unlock releases a lock taken with TryLock.
func (c *RedisCache) Unlock(ctx context.Context, key string) error {
	return c.client.Del(ctx, wrapKey(key)).Err()
}

func (c *RedisCache) setBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, wrapKey(key), data, ttl).Err()
}

func (c *RedisCache) getBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

func wrapKey(key string) string {
	return keyPrefix + ":" + key
}
