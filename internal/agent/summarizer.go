package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/mapgate/pkg/models"
)

const summarizeInstruction = "Summarize the following conversation between a user and a map " +
	"assistant in at most 5 sentences. Keep concrete facts the assistant may need later: " +
	"places, layers, filters, coordinates, and unresolved requests. Answer in the same " +
	"language the user wrote in."

// HistorySummarizer condenses transcripts through the same provider
// that drives the loop, with no tools offered.
type HistorySummarizer struct {
	provider  Provider
	maxTokens int
}

// NewHistorySummarizer creates a summarizer backed by provider.
func NewHistorySummarizer(provider Provider, maxTokens int) *HistorySummarizer {
	return &HistorySummarizer{provider: provider, maxTokens: maxTokens}
}

// Summarize renders msgs as a transcript and asks the engine for a
// short summary.
func (s *HistorySummarizer) Summarize(ctx context.Context, msgs []models.Message) (string, error) {
	completion, err := s.provider.Complete(ctx, CompletionRequest{
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: summarizeInstruction},
			{Role: models.RoleUser, Content: renderTranscript(msgs)},
		},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("agent: summarize: %w", err)
	}
	return strings.TrimSpace(completion.Text), nil
}

func renderTranscript(msgs []models.Message) string {
	var b strings.Builder
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleUser:
			b.WriteString("User: ")
			b.WriteString(msg.Content)
		case models.RoleAssistant:
			b.WriteString("Assistant: ")
			if msg.Content != "" {
				b.WriteString(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				fmt.Fprintf(&b, " [called %s]", tc.Name)
			}
		case models.RoleTool:
			// Tool payloads are noisy; note only that results arrived.
			b.WriteString("Tool result received.")
		default:
			continue
		}
		b.WriteString("\n")
	}
	return b.String()
}
