package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haasonsaas/mapgate/internal/agent"
	"github.com/haasonsaas/mapgate/internal/registry"
	"github.com/haasonsaas/mapgate/pkg/models"
)

func TestOpenAIProviderComplete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "map_call", "arguments": "{\"commands\":[]}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(Config{
		Provider: "openai",
		Model:    "gpt-4o",
		APIKey:   "test-key",
		BaseURL:  srv.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	completion, err := p.Complete(context.Background(), agent.CompletionRequest{
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: "You are a map assistant."},
			{Role: models.RoleUser, Content: "zoom in"},
		},
		Tools: []registry.Descriptor{{
			Name:        "map_call",
			Description: "map commands",
			Schema:      json.RawMessage(`{"type":"object"}`),
		}},
		MaxTokens: 512,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if len(completion.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(completion.ToolCalls))
	}
	tc := completion.ToolCalls[0]
	if tc.ID != "call_abc" || tc.Name != "map_call" {
		t.Errorf("tool call = %+v", tc)
	}

	tools, ok := captured["tools"].([]any)
	if !ok || len(tools) != 1 {
		t.Fatalf("request tools = %v", captured["tools"])
	}
	if captured["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v, want auto", captured["tool_choice"])
	}
	msgs := captured["messages"].([]any)
	first := msgs[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("first message role = %v", first["role"])
	}
}

func TestConvertToOpenAIMessagesToolFlow(t *testing.T) {
	msgs := convertToOpenAIMessages([]models.Message{
		{Role: models.RoleUser, Content: "search"},
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "c1", Name: "web_search", Arguments: json.RawMessage(`{"query":"x"}`)},
			},
		},
		{Role: models.RoleTool, ToolCallID: "c1", Content: `{"ok":true}`},
	})

	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if len(msgs[1].ToolCalls) != 1 || msgs[1].ToolCalls[0].Function.Name != "web_search" {
		t.Errorf("assistant message = %+v", msgs[1])
	}
	if msgs[2].Role != "tool" || msgs[2].ToolCallID != "c1" {
		t.Errorf("tool message = %+v", msgs[2])
	}
}

func TestNewProviderValidation(t *testing.T) {
	if _, err := New(Config{Provider: "openai", Model: "m"}); err == nil {
		t.Error("missing API key did not error")
	}
	if _, err := New(Config{Provider: "anthropic", APIKey: "k"}); err == nil {
		t.Error("missing model did not error")
	}
	if _, err := New(Config{Provider: "cohere", Model: "m", APIKey: "k"}); err == nil {
		t.Error("unknown provider did not error")
	}
	if _, err := New(Config{Provider: "openai", Model: "gpt-4o", APIKey: "k"}); err != nil {
		t.Errorf("valid openai config error = %v", err)
	}
	if _, err := New(Config{Provider: "anthropic", Model: "claude-sonnet-4-20250514", APIKey: "k"}); err != nil {
		t.Errorf("valid anthropic config error = %v", err)
	}
}
