package prefs

import (
	"context"
	"log/slog"
)

// Resolver resolves stored preferences with defaults. Store failures
// degrade to defaults; preference resolution never fails a request.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver over a preference store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the user's preferences for a bot, falling back to
// defaults (professional, intermediate) when records are absent or the
// store is unreachable. A missing per-bot record is created lazily with
// the default detail level.
func (r *Resolver) Resolve(ctx context.Context, userID, botID string) Preferences {
	resolved := Preferences{Style: DefaultStyle, DetailLevel: DefaultLevel}

	user, err := r.store.GetUserPreference(ctx, userID)
	switch {
	case err != nil:
		slog.Warn("user preference lookup failed, using defaults",
			"user_id", userID, "error", err)
	case user != nil:
		if user.Style != "" {
			resolved.Style = user.Style
		}
		resolved.Nickname = user.Nickname
	}

	bot, err := r.store.GetBotPreference(ctx, userID, botID)
	switch {
	case err != nil:
		slog.Warn("bot preference lookup failed, using defaults",
			"user_id", userID, "bot_id", botID, "error", err)
	case bot == nil:
		// Seed the per-bot record so future updates have a row to edit.
		seed := &BotPreference{UserID: userID, BotID: botID, DetailLevel: DefaultLevel}
		if err := r.store.PutBotPreference(ctx, seed); err != nil {
			slog.Warn("seeding bot preference failed",
				"user_id", userID, "bot_id", botID, "error", err)
		}
	case bot.DetailLevel != "":
		resolved.DetailLevel = bot.DetailLevel
	}

	return resolved
}
