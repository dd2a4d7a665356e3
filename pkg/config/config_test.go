package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  dsn: postgres://localhost/gateway?sslmode=disable
upstream:
  base_url: https://ai.example.com
bots:
  - id: support
    agent_ref: agent-123
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "conversation-gateway", cfg.Server.Name)
	assert.Equal(t, ":8081", cfg.Server.AdminAddress)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.Sessions.FreshnessWindow)
	assert.Equal(t, 1000, cfg.Sessions.LRUCapacity)
	assert.Equal(t, 30*time.Second, cfg.Upstream.RequestTimeout)
	assert.Equal(t, 60*time.Second, cfg.Upstream.MaxWait)
	assert.Equal(t, 500*time.Millisecond, cfg.Upstream.PollInterval)
	assert.Equal(t, 4, cfg.Usage.Workers)
	assert.Equal(t, 1024, cfg.Usage.QueueSize)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("GW_TEST_DSN", "postgres://env/db")

	cfg, err := Parse([]byte("database:\n  dsn: ${GW_TEST_DSN}\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("server: [not a map"))
	assert.Error(t, err)
}

func TestValidate_OK(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingDSN(t *testing.T) {
	cfg, err := Parse([]byte("bots:\n  - id: support\n    agent_ref: a\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn")
}

func TestValidate_MissingUpstreamBaseURL(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  dsn: x\nbots:\n  - id: support\n    agent_ref: a\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream.base_url")
}

func TestValidate_RedisRequiredWhenCacheEnabled(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + "cache:\n  enabled: true\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.address")
}

func TestValidate_DuplicateBot(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + "  - id: support\n    agent_ref: agent-456\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated")
}

func TestValidate_BotMissingAgentRef(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  dsn: x\nbots:\n  - id: support\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent_ref")
}
