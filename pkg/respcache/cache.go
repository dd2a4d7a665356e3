package respcache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Default TTLs by question class.
const (
	DefaultGenericTTL      = 3600 * time.Second
	DefaultTechnicalTTL    = 1800 * time.Second
	DefaultRegulatoryTTL   = 2400 * time.Second
	DefaultPersonalizedTTL = 600 * time.Second
)

// KV is the external key-value store behind the cache. The cache treats
// it as optional: any error degrades to a miss or a silent no-op.
type KV interface {
	// Get returns the value for a key, or found=false when absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// SetWithTTL stores a value that expires after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Keys returns all keys matching the prefix. Administrative use
	// only, out of the hot path.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Delete removes keys.
	Delete(ctx context.Context, keys ...string) error

	// Close releases resources.
	Close() error
}

// TTLConfig overrides per-class TTLs. Zero fields keep the defaults.
type TTLConfig struct {
	Generic      time.Duration
	Technical    time.Duration
	Regulatory   time.Duration
	Personalized time.Duration
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Writes     int64 `json:"writes"`
	Errors     int64 `json:"errors"`
	EntryCount int   `json:"entry_count"`
}

// Cache is the response cache. All reads and writes go through the
// external KV store; unreachability is absorbed so the cache never
// fails a request, only its economics.
type Cache struct {
	kv   KV
	ttls TTLConfig

	hits   atomic.Int64
	misses atomic.Int64
	writes atomic.Int64
	errors atomic.Int64
}

// New creates a response cache over a KV store.
func New(kv KV, ttls TTLConfig) *Cache {
	if ttls.Generic <= 0 {
		ttls.Generic = DefaultGenericTTL
	}
	if ttls.Technical <= 0 {
		ttls.Technical = DefaultTechnicalTTL
	}
	if ttls.Regulatory <= 0 {
		ttls.Regulatory = DefaultRegulatoryTTL
	}
	if ttls.Personalized <= 0 {
		ttls.Personalized = DefaultPersonalizedTTL
	}
	return &Cache{kv: kv, ttls: ttls}
}

// TTLFor returns the entry TTL for a class.
func (c *Cache) TTLFor(class Class) time.Duration {
	switch class {
	case ClassGeneric:
		return c.ttls.Generic
	case ClassTechnical:
		return c.ttls.Technical
	case ClassRegulatory:
		return c.ttls.Regulatory
	default:
		return c.ttls.Personalized
	}
}

// Get returns the cached answer for a key. Store errors count as
// misses; a read is never allowed to fail a request.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	value, found, err := c.kv.Get(ctx, key)
	if err != nil {
		c.errors.Add(1)
		c.misses.Add(1)
		slog.Warn("response cache read failed", "key", key, "error", err)
		return "", false
	}
	if !found {
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return string(value), true
}

// Set stores an answer under a key with the class TTL, or ttlOverride
// when positive. Store errors make Set a silent no-op.
func (c *Cache) Set(ctx context.Context, key string, answer string, class Class, ttlOverride time.Duration) {
	ttl := c.TTLFor(class)
	if ttlOverride > 0 {
		ttl = ttlOverride
	}

	if err := c.kv.SetWithTTL(ctx, key, []byte(answer), ttl); err != nil {
		c.errors.Add(1)
		slog.Warn("response cache write failed", "key", key, "error", err)
		return
	}
	c.writes.Add(1)
}

// Stats returns the counter snapshot plus the current entry count.
// Counting entries scans the store and belongs on the admin path only.
func (c *Cache) Stats(ctx context.Context) Stats {
	stats := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Writes: c.writes.Load(),
		Errors: c.errors.Load(),
	}

	keys, err := c.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		c.errors.Add(1)
		slog.Warn("response cache key scan failed", "error", err)
		return stats
	}
	stats.EntryCount = len(keys)
	return stats
}

// Flush removes all entries whose key starts with prefix and returns
// how many were removed. Administrative operation.
func (c *Cache) Flush(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		prefix = KeyPrefix
	}
	keys, err := c.kv.Keys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.kv.Delete(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}
