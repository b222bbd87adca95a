package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.RefineModel)
	assert.InDelta(t, 0.7, cfg.LLM.RefineTemperature, 1e-9)
	assert.Equal(t, 500, cfg.LLM.RefineMaxTokens)
	assert.Equal(t, "gpt-4o", cfg.LLM.GenerateModel)
	assert.InDelta(t, 0.3, cfg.LLM.GenerateTemperature, 1e-9)
	assert.Equal(t, 2000, cfg.LLM.GenerateMaxTokens)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 90*24*time.Hour, cfg.Storage.Retention)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTTL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midori.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = "9000"
frontend_url = "https://midori.example.com"

[llm]
provider = "ollama"
generate_model = "qwen2.5-coder"
`), 0o600))

	t.Setenv("MIDORI_LLM__GENERATE_MAX_TOKENS", "4096")
	t.Setenv("MIDORI_RATE_LIMIT__WINDOW", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "qwen2.5-coder", cfg.LLM.GenerateModel)
	assert.Equal(t, 4096, cfg.LLM.GenerateMaxTokens)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.False(t, cfg.IsDevelopment())
}

func TestConventionalEnv(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("OPENAI_API_KEY", "sk-test-123456")
	t.Setenv("DATABASE_URL", "postgres://midori@localhost/midori")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "sk-test-123456", cfg.LLM.APIKey)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)

	red := cfg.Redacted()
	assert.Equal(t, "sk-****", red.LLM.APIKey)
	assert.Equal(t, "****", red.Storage.DatabaseURL)
	assert.Equal(t, "sk-test-123456", cfg.LLM.APIKey, "redaction must not touch the original")
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"empty port":       func(c *Config) { c.Server.Port = "" },
		"unknown driver":   func(c *Config) { c.Storage.Driver = "redis" },
		"postgres no url":  func(c *Config) { c.Storage.Driver = DriverPostgres; c.Storage.DatabaseURL = "" },
		"zero rate window": func(c *Config) { c.RateLimit.Window = 0 },
		"zero max tokens":  func(c *Config) { c.LLM.GenerateMaxTokens = 0 },
		"zero queue":       func(c *Config) { c.ConversationLog.QueueSize = 0 },
		"negative idle":    func(c *Config) { c.Session.IdleTTL = -time.Minute },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := *base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	mem := *base
	mem.Storage.Driver = DriverMemory
	assert.NoError(t, mem.Validate())
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
