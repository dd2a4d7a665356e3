// Package license models company bot licenses, user grants, and
// monthly usage counters, and defines their persistence interface.
package license

import (
	"context"
	"time"
)

// Company is a tenant holding bot licenses.
type Company struct {
	ID   string
	Name string
}

// License is a company-level grant of access to a bot with a monthly
// request quota.
type License struct {
	ID         string
	CompanyID  string
	BotID      string
	MonthlyMax int
	Active     bool
}

// Grant ties an individual user to a company's license for a bot.
type Grant struct {
	UserID    string
	LicenseID string
	Active    bool
}

// Month normalizes a timestamp to its usage accounting period (first
// instant of the month, UTC).
func Month(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Store defines keyed lookups over the license data. It is the source
// of truth for authorization; the gateway never caches its answers.
type Store interface {
	// CompanyForUser returns the user's company. Returns nil, nil when
	// the user belongs to no company.
	CompanyForUser(ctx context.Context, userID string) (*Company, error)

	// ActiveLicense returns the company's active license for a bot.
	// Returns nil, nil when none is active.
	ActiveLicense(ctx context.Context, companyID, botID string) (*License, error)

	// GrantFor returns the user's active grant on a license.
	// Returns nil, nil when absent or inactive.
	GrantFor(ctx context.Context, userID, licenseID string) (*Grant, error)

	// MonthlyUsage returns the number of requests recorded against a
	// license in the month containing at.
	MonthlyUsage(ctx context.Context, licenseID string, at time.Time) (int, error)

	// IncrementUsage adds one request to the license's counter for the
	// month containing at.
	IncrementUsage(ctx context.Context, licenseID string, at time.Time) error

	// Close releases resources.
	Close() error
}
