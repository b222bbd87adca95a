// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for structured environment overrides.
// Nesting uses a double underscore: MIDORI_LLM__API_KEY -> llm.api_key.
const EnvPrefix = "MIDORI_"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server          ServerConfig          `koanf:"server"`
	Storage         StorageConfig         `koanf:"storage"`
	LLM             LLMConfig             `koanf:"llm"`
	Session         SessionConfig         `koanf:"session"`
	RateLimit       RateLimitConfig       `koanf:"rate_limit"`
	ConversationLog ConversationLogConfig `koanf:"conversation_log"`
	Log             LogConfig             `koanf:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port               string   `koanf:"port"`
	FrontendURL        string   `koanf:"frontend_url"`
	AllowedOrigins     []string `koanf:"allowed_origins"`
	MaxRequestBodySize int64    `koanf:"max_request_body_size"`
}

// StorageConfig selects the local-storage backend.
type StorageConfig struct {
	Driver      string        `koanf:"driver"`
	DBPath      string        `koanf:"db_path"`
	DatabaseURL string        `koanf:"database_url"`
	Retention   time.Duration `koanf:"retention"`
}

// LLMConfig configures the hosted model used for refinement and generation.
type LLMConfig struct {
	Provider            string  `koanf:"provider"`
	APIKey              string  `koanf:"api_key"`
	BaseURL             string  `koanf:"base_url"`
	RefineModel         string  `koanf:"refine_model"`
	RefineTemperature   float64 `koanf:"refine_temperature"`
	RefineMaxTokens     int     `koanf:"refine_max_tokens"`
	GenerateModel       string  `koanf:"generate_model"`
	GenerateTemperature float64 `koanf:"generate_temperature"`
	GenerateMaxTokens   int     `koanf:"generate_max_tokens"`
}

// SessionConfig bounds in-memory per-tab state.
type SessionConfig struct {
	// IdleTTL drops a tab's conversation and editor after this long without
	// a request. Zero keeps them until the user is swept.
	IdleTTL time.Duration `koanf:"idle_ttl"`
}

// RateLimitConfig throttles the model-backed endpoints per anonymous user.
type RateLimitConfig struct {
	RequestsPerWindow int           `koanf:"requests_per_window"`
	Window            time.Duration `koanf:"window"`
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Dir       string `koanf:"dir"`
	QueueSize int    `koanf:"queue_size"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                    "8080",
		"server.frontend_url":            "",
		"server.allowed_origins":         []string{"*"},
		"server.max_request_body_size":   int64(1 << 20),
		"storage.driver":                 DriverSQLite,
		"storage.db_path":                "./data/midori.db",
		"storage.retention":              "2160h",
		"llm.provider":                   "openai",
		"llm.refine_model":               "gpt-4o-mini",
		"llm.refine_temperature":         0.7,
		"llm.refine_max_tokens":          500,
		"llm.generate_model":             "gpt-4o",
		"llm.generate_temperature":       0.3,
		"llm.generate_max_tokens":        2000,
		"session.idle_ttl":               "2h",
		"rate_limit.requests_per_window": 10,
		"rate_limit.window":              "1m",
		"conversation_log.enabled":       true,
		"conversation_log.dir":           "./data/logs/conversations",
		"conversation_log.queue_size":    1000,
		"log.level":                      "info",
	}
}

// Load reads configuration from defaults, an optional TOML file, and the environment.
// An empty path falls back to MIDORI_CONFIG; with neither set only defaults and env apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = getEnv("MIDORI_CONFIG", "")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyConventionalEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyConventionalEnv honours the plain variable names hosting platforms set.
func (c *Config) applyConventionalEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.FrontendURL = getEnv("FRONTEND_URL", c.Server.FrontendURL)
	c.Storage.DBPath = getEnv("DB_PATH", c.Storage.DBPath)
	if url := getEnv("DATABASE_URL", ""); url != "" {
		c.Storage.DatabaseURL = url
		if _, ok := os.LookupEnv(EnvPrefix + "STORAGE__DRIVER"); !ok {
			c.Storage.Driver = DriverPostgres
		}
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", "")
	}
	c.ConversationLog.Enabled = getEnvBool("CONVERSATION_LOG_ENABLED", c.ConversationLog.Enabled)
	c.ConversationLog.QueueSize = getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", c.ConversationLog.QueueSize)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port cannot be empty")
	}
	if c.Server.MaxRequestBodySize <= 0 {
		return fmt.Errorf("server.max_request_body_size must be > 0")
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path cannot be empty for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url cannot be empty for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.LLM.RefineMaxTokens <= 0 || c.LLM.GenerateMaxTokens <= 0 {
		return fmt.Errorf("llm max tokens must be > 0")
	}
	if c.Session.IdleTTL < 0 {
		return fmt.Errorf("session.idle_ttl cannot be negative")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("rate_limit.requests_per_window must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("conversation_log.dir cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("conversation_log.queue_size must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.FrontendURL == "" ||
		strings.Contains(c.Server.FrontendURL, "localhost") ||
		strings.Contains(c.Server.FrontendURL, "127.0.0.1")
}

// SlogLevel maps log.level to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.LLM.APIKey = mask(out.LLM.APIKey)
	if out.Storage.DatabaseURL != "" {
		out.Storage.DatabaseURL = "****"
	}
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 6 {
		return "****"
	}
	return secret[:3] + "****"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
