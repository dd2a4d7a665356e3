package license

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with in-memory maps. It backs tests.
type MemoryStore struct {
	mu        sync.RWMutex
	companies map[string]*Company // by user ID
	licenses  []*License
	grants    []*Grant
	usage     map[string]int // licenseID + month
}

// NewMemoryStore creates an in-memory license store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		companies: make(map[string]*Company),
		usage:     make(map[string]int),
	}
}

// AddUser assigns a user to a company.
func (s *MemoryStore) AddUser(userID string, company Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[userID] = &company
}

// AddLicense registers a license.
func (s *MemoryStore) AddLicense(l License) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.licenses = append(s.licenses, &l)
}

// AddGrant registers a grant.
func (s *MemoryStore) AddGrant(g Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = append(s.grants, &g)
}

// SetUsage sets the usage counter for a license month.
func (s *MemoryStore) SetUsage(licenseID string, at time.Time, used int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[usageKey(licenseID, at)] = used
}

// CompanyForUser returns the user's company, or nil, nil when absent.
func (s *MemoryStore) CompanyForUser(_ context.Context, userID string) (*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[userID]
	if !ok {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	copied := *c
	return &copied, nil
}

// ActiveLicense returns the company's active license for a bot, or nil, nil.
func (s *MemoryStore) ActiveLicense(_ context.Context, companyID, botID string) (*License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.licenses {
		if l.CompanyID == companyID && l.BotID == botID && l.Active {
			copied := *l
			return &copied, nil
		}
	}
	return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
}

// GrantFor returns the user's active grant on a license, or nil, nil.
func (s *MemoryStore) GrantFor(_ context.Context, userID, licenseID string) (*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.grants {
		if g.UserID == userID && g.LicenseID == licenseID && g.Active {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
}

// MonthlyUsage returns the request count for the license month.
func (s *MemoryStore) MonthlyUsage(_ context.Context, licenseID string, at time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[usageKey(licenseID, at)], nil
}

// IncrementUsage adds one request to the license month counter.
func (s *MemoryStore) IncrementUsage(_ context.Context, licenseID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[usageKey(licenseID, at)]++
	return nil
}

// Close releases resources.
func (s *MemoryStore) Close() error { return nil }

func usageKey(licenseID string, at time.Time) string {
	return licenseID + "@" + Month(at).Format("2006-01")
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
