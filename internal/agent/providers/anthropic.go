package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/mapgate/internal/agent"
	"github.com/haasonsaas/mapgate/internal/registry"
	"github.com/haasonsaas/mapgate/pkg/models"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicProvider drives the loop through Anthropic's Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates an Anthropic-backed provider.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(options...),
		model:  cfg.Model,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete issues one non-streaming Messages call.
func (p *AnthropicProvider) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	messages, system, err := convertToAnthropicMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("anthropic: convert messages: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertToAnthropicTools(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("anthropic: convert tools: %w", err)
		}
		params.Tools = tools
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: message: %w", err)
	}

	completion := &agent.Completion{}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			completion.Text += b.Text
		case anthropic.ToolUseBlock:
			completion.ToolCalls = append(completion.ToolCalls, models.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: json.RawMessage(b.Input),
			})
		}
	}
	return completion, nil
}

// convertToAnthropicMessages maps the transcript into Anthropic's
// format. System messages are hoisted into the separate system prompt;
// tool results become user-role result blocks; consecutive messages of
// the same effective role are merged to satisfy role alternation.
func convertToAnthropicMessages(msgs []models.Message) ([]anthropic.MessageParam, string, error) {
	var out []anthropic.MessageParam
	var system string

	var pendingRole models.Role
	var pending []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if pendingRole == models.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(pending...))
		} else {
			out = append(out, anthropic.NewUserMessage(pending...))
		}
		pending = nil
	}

	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		case models.RoleAssistant:
			if pendingRole != models.RoleAssistant {
				flush()
				pendingRole = models.RoleAssistant
			}
			if msg.Content != "" {
				pending = append(pending, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal(tc.Arguments, &input); err != nil {
					return nil, "", fmt.Errorf("tool call %s input: %w", tc.ID, err)
				}
				pending = append(pending, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
		case models.RoleUser, models.RoleTool:
			if pendingRole != models.RoleUser {
				flush()
				pendingRole = models.RoleUser
			}
			if msg.Role == models.RoleTool {
				pending = append(pending, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
			} else if msg.Content != "" {
				pending = append(pending, anthropic.NewTextBlock(msg.Content))
			}
		}
	}
	flush()
	return out, system, nil
}

func convertToAnthropicTools(descs []registry.Descriptor) ([]anthropic.ToolUnionParam, error) {
	var out []anthropic.ToolUnionParam
	for _, d := range descs {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(d.Schema, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", d.Name, err)
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, d.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", d.Name)
		}
		toolParam.OfTool.Description = anthropic.String(d.Description)
		out = append(out, toolParam)
	}
	return out, nil
}
