// Package providers implements LLM backends for the reasoning loop.
package providers

import (
	"fmt"

	"github.com/haasonsaas/mapgate/internal/agent"
)

// Config selects and configures an LLM backend.
type Config struct {
	// Provider is "openai" or "anthropic".
	Provider string

	// Model is the backend model identifier.
	Model string

	// APIKey authenticates against the backend.
	APIKey string

	// BaseURL overrides the backend endpoint (tests, proxies).
	BaseURL string
}

// New creates the provider named by cfg.Provider.
func New(cfg Config) (agent.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic":
		return NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("providers: unknown provider %q", cfg.Provider)
	}
}
