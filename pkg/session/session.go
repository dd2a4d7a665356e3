// Package session provides conversational session affinity: it maps a
// (user, bot) pair to an upstream session handle and reuses the handle
// while it is fresh, so consecutive messages land in the same upstream
// conversation.
package session

import (
	"context"
	"time"
)

// Session maps a (user, bot) pair to an upstream session handle.
// At most one fresh session exists per pair; a stale mapping is
// superseded by overwriting, never deleted.
type Session struct {
	// UserID identifies the session owner.
	UserID string

	// BotID identifies the bot the session belongs to.
	BotID string

	// Handle is the opaque upstream conversation-session reference.
	Handle string

	// CreatedAt is when the upstream session was created.
	CreatedAt time.Time

	// LastUsedAt is the most recent reuse timestamp; it determines
	// freshness.
	LastUsedAt time.Time
}

// Store defines durable persistence for session mappings. The durable
// store is the source of truth; the in-process cache is only a
// performance front.
type Store interface {
	// Get retrieves the mapping for a (user, bot) pair.
	// Returns nil, nil if no mapping exists.
	Get(ctx context.Context, userID, botID string) (*Session, error)

	// Put persists a mapping, overwriting any previous one for the
	// same (user, bot) pair.
	Put(ctx context.Context, s *Session) error

	// Touch updates LastUsedAt for an existing mapping.
	Touch(ctx context.Context, userID, botID string, usedAt time.Time) error

	// Cleanup removes mappings not used since the cutoff.
	Cleanup(ctx context.Context, cutoff time.Time) error

	// Close stops background routines and releases resources.
	Close() error
}
