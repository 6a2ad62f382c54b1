package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haasonsaas/mapgate/internal/dispatch"
	"github.com/haasonsaas/mapgate/internal/registry"
	"github.com/haasonsaas/mapgate/pkg/models"
)

// DefaultMaxRounds bounds how many tool rounds one chat turn may take.
const DefaultMaxRounds = 3

// RunResult is the outcome of one loop run.
//
// Turn holds every message generated during the run, in order: the
// assistant messages (with their tool calls) and the server tool
// results. Commands are deferred map commands for the browser; when
// present, the turn ended mid-round and the client's results arrive in
// a later request.
type RunResult struct {
	Turn     []models.Message
	Commands []models.ClientCommand
	Text     string
	Rounds   int
}

// Loop drives the reasoning engine through bounded tool rounds.
type Loop struct {
	provider   Provider
	dispatcher *dispatch.Dispatcher
	registry   *registry.Registry
	maxRounds  int
	maxTokens  int
	logger     *slog.Logger
}

// NewLoop creates a Loop. maxRounds <= 0 falls back to DefaultMaxRounds.
func NewLoop(provider Provider, dispatcher *dispatch.Dispatcher, reg *registry.Registry, maxRounds, maxTokens int, logger *slog.Logger) *Loop {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		provider:   provider,
		dispatcher: dispatcher,
		registry:   reg,
		maxRounds:  maxRounds,
		maxTokens:  maxTokens,
		logger:     logger,
	}
}

// Run executes the loop over the base transcript. Each round offers the
// full capability catalog; server tool results feed the next round,
// while deferred commands end the turn immediately. When the round
// budget is exhausted the engine gets one final call with no tools, so
// the turn always ends in either text or commands.
func (l *Loop) Run(ctx context.Context, base []models.Message) (*RunResult, error) {
	result := &RunResult{}
	working := make([]models.Message, len(base))
	copy(working, base)

	tools := l.registry.Descriptors()

	for round := 0; round < l.maxRounds; round++ {
		completion, err := l.provider.Complete(ctx, CompletionRequest{
			Messages:  working,
			Tools:     tools,
			MaxTokens: l.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("agent: completion round %d: %w", round+1, err)
		}
		result.Rounds = round + 1

		assistant := models.Message{
			Role:      models.RoleAssistant,
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		}
		working = append(working, assistant)
		result.Turn = append(result.Turn, assistant)

		if len(completion.ToolCalls) == 0 {
			result.Text = completion.Text
			return result, nil
		}

		outcome := l.dispatcher.Dispatch(ctx, completion.ToolCalls)
		working = append(working, outcome.Results...)
		result.Turn = append(result.Turn, outcome.Results...)

		if outcome.Deferred() {
			result.Commands = outcome.Commands
			result.Text = completion.Text
			if result.Text == "" {
				result.Text = outcome.Note
			}
			l.logger.Debug("turn deferred to client",
				"commands", len(outcome.Commands), "rounds", result.Rounds)
			return result, nil
		}
	}

	// Round budget exhausted: one last call with no tools forces a
	// textual answer from whatever was gathered.
	l.logger.Debug("round budget exhausted, forcing tool-free completion")
	completion, err := l.provider.Complete(ctx, CompletionRequest{
		Messages:  working,
		MaxTokens: l.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: final completion: %w", err)
	}
	result.Rounds++

	final := models.Message{Role: models.RoleAssistant, Content: completion.Text}
	result.Turn = append(result.Turn, final)
	result.Text = completion.Text
	return result, nil
}
