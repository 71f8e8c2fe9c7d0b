package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisPrefix = "wt:storage:"

// RedisConfig configures the redis backend.
type RedisConfig struct {
	URL    string
	Prefix string
	// TTL refreshes the partition expiry on every write. Zero keeps partitions forever.
	TTL time.Duration
}

// RedisBackend stores each partition as a redis hash.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend connects to redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

func (b *RedisBackend) key(partition string) string {
	return b.prefix + partition
}

func (b *RedisBackend) Get(ctx context.Context, partition, key string) (string, bool, error) {
	v, err := b.client.HGet(ctx, b.key(partition), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, partition, key, value string) error {
	hashKey := b.key(partition)
	if _, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKey, key, value)
		if b.ttl > 0 {
			pipe.Expire(ctx, hashKey, b.ttl)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, partition, key string) error {
	if err := b.client.HDel(ctx, b.key(partition), key).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", key, err)
	}
	return nil
}

// Close closes the redis client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
