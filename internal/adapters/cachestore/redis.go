package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a cache store backed by a shared Redis instance, letting separate
// engine processes reuse each other's node results.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type RedisOption func(*Redis)

// WithRedisTTL sets the entry lifetime. Zero means no expiration.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// WithRedisPrefix sets the key prefix. Default is "loom".
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		ttl:    24 * time.Hour,
		prefix: "loom",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return value, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.cacheKey(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *Redis) cacheKey(key string) string {
	return r.prefix + ":cache:" + key
}
