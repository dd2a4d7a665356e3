// Package config loads and validates the gateway configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete gateway configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Sessions SessionConfig  `yaml:"sessions"`
	Cache    CacheConfig    `yaml:"cache"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Usage    UsageConfig    `yaml:"usage"`
	Bots     []BotConfig    `yaml:"bots"`
}

// ServerConfig configures the admin/ops HTTP listener.
type ServerConfig struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	AdminAddress string `yaml:"admin_address"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig configures the response cache backend.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SessionConfig configures session affinity.
type SessionConfig struct {
	// FreshnessWindow is the maximum age at which a cached upstream session
	// handle is still reused instead of recreated.
	FreshnessWindow time.Duration `yaml:"freshness_window"`

	// LRUCapacity bounds the in-process session cache.
	LRUCapacity int `yaml:"lru_capacity"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// TTL overrides per question class, in seconds. Zero means the
	// built-in default for that class.
	GenericTTL      time.Duration `yaml:"generic_ttl"`
	TechnicalTTL    time.Duration `yaml:"technical_ttl"`
	RegulatoryTTL   time.Duration `yaml:"regulatory_ttl"`
	PersonalizedTTL time.Duration `yaml:"personalized_ttl"`
}

// UpstreamConfig configures calls to the conversational-AI service.
type UpstreamConfig struct {
	// BaseURL is the root of the upstream service's HTTP API.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates the gateway against the upstream service.
	APIKey string `yaml:"api_key"`

	// RequestTimeout bounds each individual HTTP call to the upstream.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxWait bounds the completion poll; past it the call is a timeout.
	MaxWait time.Duration `yaml:"max_wait"`

	// PollInterval is the delay between completion status checks.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// UsageConfig configures the asynchronous usage recorder.
type UsageConfig struct {
	// Workers is the number of background write workers.
	Workers int `yaml:"workers"`

	// QueueSize bounds pending fire-and-forget writes; further writes
	// are dropped and counted.
	QueueSize int `yaml:"queue_size"`
}

// BotConfig declares a bot and its upstream mapping.
type BotConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`

	// AgentRef is the upstream service's identifier for this bot's agent.
	AgentRef string `yaml:"agent_ref"`

	// Preamble is the bot-specific domain preamble prepended to the
	// steering instructions.
	Preamble string `yaml:"preamble"`
}

// Load reads configuration from a file.
// The path is expected to come from command line arguments, controlled by the operator.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from raw YAML bytes.
func Parse(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "conversation-gateway"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}
	if cfg.Server.AdminAddress == "" {
		cfg.Server.AdminAddress = ":8081"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Sessions.FreshnessWindow == 0 {
		cfg.Sessions.FreshnessWindow = time.Hour
	}
	if cfg.Sessions.LRUCapacity == 0 {
		cfg.Sessions.LRUCapacity = 1000
	}
	if cfg.Upstream.RequestTimeout == 0 {
		cfg.Upstream.RequestTimeout = 30 * time.Second
	}
	if cfg.Upstream.MaxWait == 0 {
		cfg.Upstream.MaxWait = 60 * time.Second
	}
	if cfg.Upstream.PollInterval == 0 {
		cfg.Upstream.PollInterval = 500 * time.Millisecond
	}
	if cfg.Usage.Workers == 0 {
		cfg.Usage.Workers = 4
	}
	if cfg.Usage.QueueSize == 0 {
		cfg.Usage.QueueSize = 1024
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}
	if c.Cache.Enabled && c.Redis.Address == "" {
		errs = append(errs, "redis.address is required when cache is enabled")
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.base_url is required")
	}
	seen := make(map[string]bool, len(c.Bots))
	for i, bot := range c.Bots {
		if bot.ID == "" {
			errs = append(errs, fmt.Sprintf("bots[%d].id is required", i))
			continue
		}
		if seen[bot.ID] {
			errs = append(errs, fmt.Sprintf("bots[%d].id %q is duplicated", i, bot.ID))
		}
		seen[bot.ID] = true
		if bot.AgentRef == "" {
			errs = append(errs, fmt.Sprintf("bots[%d] (%s): agent_ref is required", i, bot.ID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
