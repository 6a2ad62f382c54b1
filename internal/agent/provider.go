// Package agent runs the bounded reasoning loop that turns a user
// message into an assistant reply, server tool executions, and deferred
// map commands.
package agent

import (
	"context"

	"github.com/haasonsaas/mapgate/internal/registry"
	"github.com/haasonsaas/mapgate/pkg/models"
)

// CompletionRequest is one call to the reasoning engine.
type CompletionRequest struct {
	Messages  []models.Message
	Tools     []registry.Descriptor
	MaxTokens int
}

// Completion is the engine's reply: free text, tool calls, or both.
type Completion struct {
	Text      string
	ToolCalls []models.ToolCall
}

// Provider abstracts an LLM backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
