// Package bots provides the catalog of configured bots and their
// upstream agent mappings.
package bots

import (
	"fmt"
	"sync"
)

// Bot describes a configured bot.
type Bot struct {
	// ID is the unique bot identifier used by callers.
	ID string

	// DisplayName is the human-readable name.
	DisplayName string

	// AgentRef is the upstream service's identifier for this bot's agent.
	AgentRef string

	// Preamble is the bot-specific domain preamble used when building
	// steering instructions.
	Preamble string
}

// Catalog holds the configured bots. It is constructed once at startup
// and injected wherever bot resolution is needed.
type Catalog struct {
	mu   sync.RWMutex
	bots map[string]Bot
}

// NewCatalog creates a catalog from bot definitions.
func NewCatalog(defs []Bot) (*Catalog, error) {
	bots := make(map[string]Bot, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("bot definition missing id")
		}
		if def.AgentRef == "" {
			return nil, fmt.Errorf("bot %s missing agent_ref", def.ID)
		}
		if _, exists := bots[def.ID]; exists {
			return nil, fmt.Errorf("bot %s already registered", def.ID)
		}
		bots[def.ID] = def
	}
	return &Catalog{bots: bots}, nil
}

// Lookup retrieves a bot by ID.
func (c *Catalog) Lookup(botID string) (Bot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bot, ok := c.bots[botID]
	return bot, ok
}

// All returns all registered bots.
func (c *Catalog) All() []Bot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Bot, 0, len(c.bots))
	for _, bot := range c.bots {
		result = append(result, bot)
	}
	return result
}

// Register adds a bot at runtime. It fails if the ID is already taken.
func (c *Catalog) Register(bot Bot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.bots[bot.ID]; exists {
		return fmt.Errorf("bot %s already registered", bot.ID)
	}
	c.bots[bot.ID] = bot
	return nil
}
