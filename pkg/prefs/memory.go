package prefs

import (
	"context"
	"sync"
)

// MemoryStore implements Store using in-memory maps. It backs tests and
// single-process deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*UserPreference
	bots  map[string]*BotPreference
}

// NewMemoryStore creates an in-memory preference store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*UserPreference),
		bots:  make(map[string]*BotPreference),
	}
}

// GetUserPreference returns the user's style record, or nil, nil if absent.
func (s *MemoryStore) GetUserPreference(_ context.Context, userID string) (*UserPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.users[userID]
	if !ok {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	copied := *p
	return &copied, nil
}

// PutUserPreference upserts the user's style record.
func (s *MemoryStore) PutUserPreference(_ context.Context, p *UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *p
	s.users[p.UserID] = &copied
	return nil
}

// GetBotPreference returns the per-bot detail record, or nil, nil if absent.
func (s *MemoryStore) GetBotPreference(_ context.Context, userID, botID string) (*BotPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.bots[userID+"\x00"+botID]
	if !ok {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	copied := *p
	return &copied, nil
}

// PutBotPreference upserts the per-bot detail record.
func (s *MemoryStore) PutBotPreference(_ context.Context, p *BotPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *p
	s.bots[p.UserID+"\x00"+p.BotID] = &copied
	return nil
}

// Close releases resources.
func (s *MemoryStore) Close() error { return nil }

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
