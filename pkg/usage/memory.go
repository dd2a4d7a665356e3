package usage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory usage store for tests and single-node
// deployments without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore creates an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert writes a single record.
func (s *MemoryStore) Insert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Query retrieves records matching the filter, newest first.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]Record, error) {
	s.mu.RLock()
	matched := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if filter.matches(rec) {
			matched = append(matched, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Summarize aggregates records matching the filter.
func (s *MemoryStore) Summarize(_ context.Context, filter QueryFilter) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	for _, rec := range s.records {
		if !filter.matches(rec) {
			continue
		}
		sum.Exchanges++
		sum.InputTokens += int64(rec.InputTokens)
		sum.OutputTokens += int64(rec.OutputTokens)
	}
	return sum, nil
}

// Close releases resources.
func (s *MemoryStore) Close() error {
	return nil
}

func (f QueryFilter) matches(rec Record) bool {
	if f.UserID != "" && rec.UserID != f.UserID {
		return false
	}
	if f.CompanyID != "" && rec.CompanyID != f.CompanyID {
		return false
	}
	if f.BotID != "" && rec.BotID != f.BotID {
		return false
	}
	if f.StartTime != nil && rec.OccurredAt.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && rec.OccurredAt.After(*f.EndTime) {
		return false
	}
	return true
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
