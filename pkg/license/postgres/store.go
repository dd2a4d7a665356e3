// Package postgres provides PostgreSQL storage for license data.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/botwire/conversation-gateway/pkg/license"
)

// Store implements license.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL license store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CompanyForUser returns the user's company, or nil, nil when the user
// belongs to no company.
func (s *Store) CompanyForUser(ctx context.Context, userID string) (*license.Company, error) {
	query := `
		SELECT c.id, c.name
		FROM companies c
		JOIN company_users cu ON cu.company_id = c.id
		WHERE cu.user_id = $1
	`
	var c license.Company
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning company: %w", err)
	}
	return &c, nil
}

// ActiveLicense returns the company's active license for a bot, or
// nil, nil when none is active.
func (s *Store) ActiveLicense(ctx context.Context, companyID, botID string) (*license.License, error) {
	query := `
		SELECT id, company_id, bot_id, monthly_max, active
		FROM licenses
		WHERE company_id = $1 AND bot_id = $2 AND active
	`
	var l license.License
	err := s.db.QueryRowContext(ctx, query, companyID, botID).Scan(
		&l.ID, &l.CompanyID, &l.BotID, &l.MonthlyMax, &l.Active,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning license: %w", err)
	}
	return &l, nil
}

// GrantFor returns the user's active grant on a license, or nil, nil
// when absent or inactive.
func (s *Store) GrantFor(ctx context.Context, userID, licenseID string) (*license.Grant, error) {
	query := `
		SELECT user_id, license_id, active
		FROM license_grants
		WHERE user_id = $1 AND license_id = $2 AND active
	`
	var g license.Grant
	err := s.db.QueryRowContext(ctx, query, userID, licenseID).Scan(
		&g.UserID, &g.LicenseID, &g.Active,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning grant: %w", err)
	}
	return &g, nil
}

// MonthlyUsage returns the request count for the license month.
// A license with no usage row yet has used zero.
func (s *Store) MonthlyUsage(ctx context.Context, licenseID string, at time.Time) (int, error) {
	query := `
		SELECT used FROM license_usage
		WHERE license_id = $1 AND month = $2
	`
	var used int
	err := s.db.QueryRowContext(ctx, query, licenseID, license.Month(at)).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scanning monthly usage: %w", err)
	}
	return used, nil
}

// IncrementUsage adds one request to the license month counter,
// creating the row on first use.
func (s *Store) IncrementUsage(ctx context.Context, licenseID string, at time.Time) error {
	query := `
		INSERT INTO license_usage (license_id, month, used)
		VALUES ($1, $2, 1)
		ON CONFLICT (license_id, month) DO UPDATE
		SET used = license_usage.used + 1
	`
	_, err := s.db.ExecContext(ctx, query, licenseID, license.Month(at))
	if err != nil {
		return fmt.Errorf("incrementing usage: %w", err)
	}
	return nil
}

// Close releases resources.
func (*Store) Close() error { return nil }

// Verify interface compliance.
var _ license.Store = (*Store)(nil)
