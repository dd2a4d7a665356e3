package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory map. It backs tests
// and single-process deployments without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Get retrieves the mapping for a (user, bot) pair. Returns nil, nil if
// no mapping exists.
func (s *MemoryStore) Get(_ context.Context, userID, botID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[pairKey(userID, botID)]
	if !ok {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	copied := *sess
	return &copied, nil
}

// Put persists a mapping, overwriting any previous one for the pair.
func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sess
	s.sessions[pairKey(sess.UserID, sess.BotID)] = &copied
	return nil
}

// Touch updates LastUsedAt for an existing mapping.
func (s *MemoryStore) Touch(_ context.Context, userID, botID string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[pairKey(userID, botID)]; ok {
		sess.LastUsedAt = usedAt
	}
	return nil
}

// Cleanup removes mappings not used since the cutoff.
func (s *MemoryStore) Cleanup(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, sess := range s.sessions {
		if sess.LastUsedAt.Before(cutoff) {
			delete(s.sessions, key)
		}
	}
	return nil
}

// Close releases resources.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*Session)
	return nil
}

func pairKey(userID, botID string) string {
	return userID + "\x00" + botID
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
