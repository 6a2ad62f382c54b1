package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  port: 9090
  frontend_origin: http://localhost:5173
store:
  driver: sqlite
  path: /tmp/test.db
llm:
  provider: openai
  model: gpt-4o
  api_key: test-key
tools:
  tavily_api_key: tv-key
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host default = %q", cfg.Server.Host)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("session ttl default = %v", cfg.Session.TTL)
	}
	if cfg.Session.MagicLifetime != 10*time.Minute {
		t.Errorf("magic lifetime default = %v", cfg.Session.MagicLifetime)
	}
	if cfg.History.Limit != 30 {
		t.Errorf("history limit default = %d", cfg.History.Limit)
	}
	if cfg.LLM.MaxRounds != 3 {
		t.Errorf("max rounds default = %d", cfg.LLM.MaxRounds)
	}
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MAPGATE_KEY", "from-env")
	cfg, err := Parse([]byte(strings.Replace(validYAML, "api_key: test-key", "api_key: ${TEST_MAPGATE_KEY}", 1)))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte(validYAML + "\nbogus_section:\n  x: 1\n")); err == nil {
		t.Error("unknown field did not error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Parse([]byte(validYAML))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.LLM.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing api key did not error")
	}

	cfg = base()
	cfg.Store.Driver = "redis"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown store driver did not error")
	}

	cfg = base()
	cfg.LLM.Provider = "cohere"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown provider did not error")
	}

	cfg = base()
	cfg.History.Limit = 1
	if err := cfg.Validate(); err == nil {
		t.Error("tiny history limit did not error")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Store.Driver)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file did not error")
	}
}
