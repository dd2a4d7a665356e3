package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/botwire/conversation-gateway/pkg/upstream"
)

const (
	// DefaultFreshnessWindow is the maximum session age for reuse.
	DefaultFreshnessWindow = time.Hour

	// DefaultLRUCapacity bounds the in-process fast path.
	DefaultLRUCapacity = 1000
)

// ErrUnavailable means session creation failed even on the fallback
// path. It is the only session error a caller ever sees.
var ErrUnavailable = errors.New("session unavailable")

// CacheConfig configures the session cache.
type CacheConfig struct {
	FreshnessWindow time.Duration
	LRUCapacity     int
}

// Cache is the session-affinity component. It fronts the durable Store
// with a bounded LRU and creates upstream sessions lazily. Lookup
// failures never fail a request: the cache falls back to creating a
// brand-new session.
type Cache struct {
	store     Store
	svc       upstream.Service
	fast      *lru.Cache[string, *Session]
	freshness time.Duration

	// wg tracks fire-and-forget persistence writes so Close can drain.
	wg sync.WaitGroup
}

// NewCache creates a session cache over a durable store and the
// upstream service.
func NewCache(store Store, svc upstream.Service, cfg CacheConfig) (*Cache, error) {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultFreshnessWindow
	}
	if cfg.LRUCapacity <= 0 {
		cfg.LRUCapacity = DefaultLRUCapacity
	}

	fast, err := lru.New[string, *Session](cfg.LRUCapacity)
	if err != nil {
		return nil, fmt.Errorf("creating session lru: %w", err)
	}

	return &Cache{
		store:     store,
		svc:       svc,
		fast:      fast,
		freshness: cfg.FreshnessWindow,
	}, nil
}

// Acquire returns an upstream session handle for the (user, bot) pair,
// reusing the existing session while it is fresh and creating a new one
// otherwise. agentRef is the upstream agent used when creation is
// needed.
//
// Two concurrent calls for the same pair may race to create two
// sessions; both handles are valid and the most recently persisted
// mapping wins future lookups.
func (c *Cache) Acquire(ctx context.Context, userID, botID, agentRef string) (string, error) {
	now := time.Now()
	key := pairKey(userID, botID)

	if sess, ok := c.fast.Get(key); ok && c.isFresh(sess, now) {
		c.touchAsync(key, sess, now)
		return sess.Handle, nil
	}

	sess, err := c.store.Get(ctx, userID, botID)
	if err != nil {
		// Continuity is best-effort; availability is required.
		slog.Warn("session lookup failed, creating new session",
			"user_id", userID, "bot_id", botID, "error", err)
		return c.create(ctx, userID, botID, agentRef, now)
	}
	if sess != nil && c.isFresh(sess, now) {
		c.touchAsync(key, sess, now)
		return sess.Handle, nil
	}

	return c.create(ctx, userID, botID, agentRef, now)
}

// Close drains outstanding asynchronous writes.
func (c *Cache) Close() error {
	c.wg.Wait()
	return nil
}

func (c *Cache) isFresh(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastUsedAt) < c.freshness
}

// create requests a new upstream session and persists the superseding
// mapping without blocking the caller.
func (c *Cache) create(ctx context.Context, userID, botID, agentRef string, now time.Time) (string, error) {
	handle, err := c.svc.CreateSession(ctx, agentRef)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess := &Session{
		UserID:     userID,
		BotID:      botID,
		Handle:     handle,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	c.fast.Add(pairKey(userID, botID), sess)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.store.Put(context.Background(), sess); err != nil {
			slog.Warn("session persist failed",
				"user_id", userID, "bot_id", botID, "error", err)
		}
	}()

	return handle, nil
}

// touchAsync refreshes LastUsedAt on the fast path and, fire-and-forget,
// in the durable store. A failed bump only shortens continuity.
func (c *Cache) touchAsync(key string, sess *Session, now time.Time) {
	refreshed := *sess
	refreshed.LastUsedAt = now
	c.fast.Add(key, &refreshed)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.store.Touch(context.Background(), sess.UserID, sess.BotID, now); err != nil {
			slog.Warn("session touch failed",
				"user_id", sess.UserID, "bot_id", sess.BotID, "error", err)
		}
	}()
}
