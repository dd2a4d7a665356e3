package prefs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	prefsTestUser = "user-1"
	prefsTestBot  = "bot-support"
)

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) GetUserPreference(context.Context, string) (*UserPreference, error) {
	return nil, errors.New("store unreachable")
}
func (failingStore) PutUserPreference(context.Context, *UserPreference) error {
	return errors.New("store unreachable")
}
func (failingStore) GetBotPreference(context.Context, string, string) (*BotPreference, error) {
	return nil, errors.New("store unreachable")
}
func (failingStore) PutBotPreference(context.Context, *BotPreference) error {
	return errors.New("store unreachable")
}
func (failingStore) Close() error { return nil }

func TestResolve_DefaultsWhenAbsent(t *testing.T) {
	r := NewResolver(NewMemoryStore())

	p := r.Resolve(context.Background(), prefsTestUser, prefsTestBot)
	assert.Equal(t, DefaultStyle, p.Style)
	assert.Equal(t, DefaultLevel, p.DetailLevel)
	assert.Empty(t, p.Nickname)
}

func TestResolve_StoredValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.PutUserPreference(ctx, &UserPreference{
		UserID: prefsTestUser, Style: StyleCasual, Nickname: "Sam",
	}))
	require.NoError(t, store.PutBotPreference(ctx, &BotPreference{
		UserID: prefsTestUser, BotID: prefsTestBot, DetailLevel: LevelAdvanced,
	}))

	p := NewResolver(store).Resolve(ctx, prefsTestUser, prefsTestBot)
	assert.Equal(t, StyleCasual, p.Style)
	assert.Equal(t, LevelAdvanced, p.DetailLevel)
	assert.Equal(t, "Sam", p.Nickname)
}

func TestResolve_SeedsMissingBotRecord(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	NewResolver(store).Resolve(ctx, prefsTestUser, prefsTestBot)

	seeded, err := store.GetBotPreference(ctx, prefsTestUser, prefsTestBot)
	require.NoError(t, err)
	require.NotNil(t, seeded)
	assert.Equal(t, DefaultLevel, seeded.DetailLevel)
}

func TestResolve_StoreFailureDegradesToDefaults(t *testing.T) {
	p := NewResolver(failingStore{}).Resolve(context.Background(), prefsTestUser, prefsTestBot)
	assert.Equal(t, DefaultStyle, p.Style)
	assert.Equal(t, DefaultLevel, p.DetailLevel)
}

func TestMerge_OverridesWin(t *testing.T) {
	stored := Preferences{Style: StyleProfessional, DetailLevel: LevelIntermediate, Nickname: "Sam"}

	merged := stored.Merge(Preferences{Style: StyleTechnical})
	assert.Equal(t, StyleTechnical, merged.Style)
	assert.Equal(t, LevelIntermediate, merged.DetailLevel)
	assert.Equal(t, "Sam", merged.Nickname)

	merged = stored.Merge(Preferences{DetailLevel: LevelBeginner, Nickname: "Alex"})
	assert.Equal(t, StyleProfessional, merged.Style)
	assert.Equal(t, LevelBeginner, merged.DetailLevel)
	assert.Equal(t, "Alex", merged.Nickname)
}
