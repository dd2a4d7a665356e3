// Package prefs resolves a user's response style and detail level for
// a bot and builds the steering instructions sent upstream.
package prefs

import "context"

// DetailLevel controls how elaborate answers should be.
type DetailLevel string

const (
	LevelBeginner     DetailLevel = "beginner"
	LevelIntermediate DetailLevel = "intermediate"
	LevelAdvanced     DetailLevel = "advanced"
)

// Style controls the tone of answers.
type Style string

const (
	StyleCasual       Style = "casual"
	StyleProfessional Style = "professional"
	StyleTechnical    Style = "technical"
)

// Defaults applied when no stored preference exists.
const (
	DefaultStyle Style       = StyleProfessional
	DefaultLevel DetailLevel = LevelIntermediate
)

// Preferences is a fully resolved preference set. Zero-valued fields in
// an override mean "not specified".
type Preferences struct {
	Style       Style
	DetailLevel DetailLevel
	Nickname    string
}

// Merge returns p with any non-zero fields of override taking
// precedence. Ad hoc caller overrides always win over stored settings.
func (p Preferences) Merge(override Preferences) Preferences {
	if override.Style != "" {
		p.Style = override.Style
	}
	if override.DetailLevel != "" {
		p.DetailLevel = override.DetailLevel
	}
	if override.Nickname != "" {
		p.Nickname = override.Nickname
	}
	return p
}

// UserPreference is the global per-user communication style.
type UserPreference struct {
	UserID   string
	Style    Style
	Nickname string
}

// BotPreference is the per-(user, bot) content detail level.
type BotPreference struct {
	UserID      string
	BotID       string
	DetailLevel DetailLevel
}

// Store defines persistence for preference records.
type Store interface {
	// GetUserPreference returns the user's global style record.
	// Returns nil, nil if absent.
	GetUserPreference(ctx context.Context, userID string) (*UserPreference, error)

	// PutUserPreference upserts the user's global style record.
	PutUserPreference(ctx context.Context, p *UserPreference) error

	// GetBotPreference returns the per-bot detail record.
	// Returns nil, nil if absent.
	GetBotPreference(ctx context.Context, userID, botID string) (*BotPreference, error)

	// PutBotPreference upserts the per-bot detail record.
	PutBotPreference(ctx context.Context, p *BotPreference) error

	// Close releases resources.
	Close() error
}
