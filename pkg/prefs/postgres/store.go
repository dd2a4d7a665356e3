// Package postgres provides PostgreSQL storage for preference records.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/botwire/conversation-gateway/pkg/prefs"
)

// Store implements prefs.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL preference store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetUserPreference returns the user's style record, or nil, nil if absent.
func (s *Store) GetUserPreference(ctx context.Context, userID string) (*prefs.UserPreference, error) {
	query := `
		SELECT user_id, style, nickname
		FROM user_preferences
		WHERE user_id = $1
	`
	var p prefs.UserPreference
	var nickname sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.Style, &nickname)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user preference: %w", err)
	}
	p.Nickname = nickname.String
	return &p, nil
}

// PutUserPreference upserts the user's style record.
func (s *Store) PutUserPreference(ctx context.Context, p *prefs.UserPreference) error {
	query := `
		INSERT INTO user_preferences (user_id, style, nickname)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET style = EXCLUDED.style, nickname = EXCLUDED.nickname
	`
	_, err := s.db.ExecContext(ctx, query, p.UserID, p.Style, p.Nickname)
	if err != nil {
		return fmt.Errorf("upserting user preference: %w", err)
	}
	return nil
}

// GetBotPreference returns the per-bot detail record, or nil, nil if absent.
func (s *Store) GetBotPreference(ctx context.Context, userID, botID string) (*prefs.BotPreference, error) {
	query := `
		SELECT user_id, bot_id, detail_level
		FROM bot_preferences
		WHERE user_id = $1 AND bot_id = $2
	`
	var p prefs.BotPreference
	err := s.db.QueryRowContext(ctx, query, userID, botID).Scan(&p.UserID, &p.BotID, &p.DetailLevel)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning bot preference: %w", err)
	}
	return &p, nil
}

// PutBotPreference upserts the per-bot detail record.
func (s *Store) PutBotPreference(ctx context.Context, p *prefs.BotPreference) error {
	query := `
		INSERT INTO bot_preferences (user_id, bot_id, detail_level)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, bot_id) DO UPDATE
		SET detail_level = EXCLUDED.detail_level
	`
	_, err := s.db.ExecContext(ctx, query, p.UserID, p.BotID, p.DetailLevel)
	if err != nil {
		return fmt.Errorf("upserting bot preference: %w", err)
	}
	return nil
}

// Close releases resources.
func (*Store) Close() error { return nil }

// Verify interface compliance.
var _ prefs.Store = (*Store)(nil)
