// Package config loads and validates the gateway configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	LLM     LLMConfig     `yaml:"llm"`
	History HistoryConfig `yaml:"history"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// FrontendOrigin is the browser origin allowed to call the API
	// with credentials (CORS).
	FrontendOrigin string `yaml:"frontend_origin"`
}

// StoreConfig selects and configures session persistence.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file (sqlite driver only).
	Path string `yaml:"path"`

	// SweepSchedule is a cron expression for purging expired entries.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// SessionConfig bounds session lifetimes.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	MagicLifetime time.Duration `yaml:"magic_lifetime"`
}

// LLMConfig selects the reasoning backend.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	MaxRounds int    `yaml:"max_rounds"`
	MaxTokens int    `yaml:"max_tokens"`
}

// HistoryConfig bounds the stored transcript.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// ToolsConfig holds credentials for server-immediate tools. Tools with
// an empty key are not registered.
type ToolsConfig struct {
	TavilyAPIKey     string `yaml:"tavily_api_key"`
	GoogleMapsAPIKey string `yaml:"google_maps_api_key"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Path == "" {
		c.Store.Path = "mapgate.db"
	}
	if c.Store.SweepSchedule == "" {
		c.Store.SweepSchedule = "@every 10m"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = time.Hour
	}
	if c.Session.MagicLifetime == 0 {
		c.Session.MagicLifetime = 10 * time.Minute
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.MaxRounds == 0 {
		c.LLM.MaxRounds = 3
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.History.Limit == 0 {
		c.History.Limit = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("config: llm model is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("config: llm api_key is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("config: session ttl must be positive")
	}
	if c.Session.MagicLifetime <= 0 {
		return fmt.Errorf("config: session magic_lifetime must be positive")
	}
	if c.History.Limit < 2 {
		return fmt.Errorf("config: history limit %d too small", c.History.Limit)
	}
	return nil
}
