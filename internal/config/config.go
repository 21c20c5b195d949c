package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full externally-configurable surface of the gateway. Nothing in
// here is hardcoded into component logic; every knob has a TOURGATE_* env alias.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	MCP      MCPConfig      `mapstructure:"mcp"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UpstreamConfig points the fetcher at the internal dashboard data API.
type UpstreamConfig struct {
	// BaseURL overrides the upstream origin. When empty the fetcher falls back
	// to the origin of the inbound request, letting a co-located deployment
	// call itself.
	BaseURL string `mapstructure:"base_url"`

	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// Response cache for idempotent GETs.
	CacheSize       int `mapstructure:"cache_size"`
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

// Timeout returns the per-call fetch timeout.
func (c UpstreamConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the upstream response cache TTL.
func (c UpstreamConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Timeout returns the provider call timeout.
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ChatConfig bounds the chat tool loop.
type ChatConfig struct {
	RoundCap     int `mapstructure:"round_cap"`
	HistoryLimit int `mapstructure:"history_limit"`
}

// QuotaConfig configures the sliding-window enforcer. An empty MongoURI means
// the enforcer runs in pass-through mode.
type QuotaConfig struct {
	MongoURI       string `mapstructure:"mongo_uri"`
	Database       string `mapstructure:"database"`
	Collection     string `mapstructure:"collection"`
	Limit          int    `mapstructure:"limit"`
	WindowHours    int    `mapstructure:"window_hours"`
	RetentionHours int    `mapstructure:"retention_hours"`
}

// Window returns the enforcement window.
func (c QuotaConfig) Window() time.Duration {
	if c.WindowHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.WindowHours) * time.Hour
}

// Retention returns the document TTL, always at least the window.
func (c QuotaConfig) Retention() time.Duration {
	retention := time.Duration(c.RetentionHours) * time.Hour
	if retention < c.Window() {
		return 2 * c.Window()
	}
	return retention
}

// MCPConfig selects the protocol transport deployment mode.
type MCPConfig struct {
	// Mode is "stateful" (long-lived session map) or "stateless" (one-shot
	// server per request).
	Mode string `mapstructure:"mode"`
}

// Stateful reports whether the protocol server keeps a session map.
func (c MCPConfig) Stateful() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Mode), "stateless")
}

// Load reads configuration from an optional YAML file plus TOURGATE_* env vars.
// Env vars win over the file; defaults fill the rest.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8700)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("upstream.timeout_seconds", 15)
	v.SetDefault("upstream.cache_size", 0)
	v.SetDefault("upstream.cache_ttl_seconds", 60)
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "openai/gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout_seconds", 120)
	v.SetDefault("chat.round_cap", 6)
	v.SetDefault("chat.history_limit", 12)
	v.SetDefault("quota.collection", "rate_limits")
	v.SetDefault("quota.limit", 10)
	v.SetDefault("quota.window_hours", 24)
	v.SetDefault("quota.retention_hours", 48)
	v.SetDefault("mcp.mode", "stateful")

	v.SetEnvPrefix("TOURGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Chat.RoundCap <= 0 {
		return fmt.Errorf("chat.round_cap must be positive, got %d", c.Chat.RoundCap)
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be positive, got %d", c.Chat.HistoryLimit)
	}
	if c.Quota.Limit <= 0 {
		return fmt.Errorf("quota.limit must be positive, got %d", c.Quota.Limit)
	}
	return nil
}
