// Package redis provides the Redis backend for the response cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/botwire/conversation-gateway/pkg/respcache"
)

// scanBatchSize bounds a single SCAN iteration.
const scanBatchSize = 256

// KV implements respcache.KV using Redis.
type KV struct {
	client *redis.Client
}

// Config configures the Redis connection.
type Config struct {
	Address  string
	Password string
	DB       int
}

// New creates a Redis-backed KV store.
func New(cfg Config) *KV {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &KV{client: client}
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client) *KV {
	return &KV{client: client}
}

// Ping verifies the connection.
func (k *KV) Ping(ctx context.Context) error {
	if err := k.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Get returns the value for a key, or found=false when absent.
func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := k.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading key %s: %w", key, err)
	}
	return value, true, nil
}

// SetWithTTL stores a value that expires after ttl.
func (k *KV) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := k.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

// Keys returns all keys matching the prefix using SCAN, so large
// keyspaces do not block the server the way KEYS would.
func (k *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := k.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning keys with prefix %s: %w", prefix, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// Delete removes keys.
func (k *KV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := k.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting %d keys: %w", len(keys), err)
	}
	return nil
}

// Close releases the client.
func (k *KV) Close() error {
	return k.client.Close()
}

// Verify interface compliance.
var _ respcache.KV = (*KV)(nil)
