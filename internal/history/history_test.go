package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/haasonsaas/mapgate/pkg/models"
)

type stubSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *stubSummarizer) Summarize(_ context.Context, _ []models.Message) (string, error) {
	s.calls++
	return s.summary, s.err
}

func userMsg(text string) models.Message {
	return models.Message{Role: models.RoleUser, Content: text}
}

func manyMessages(n int) []models.Message {
	msgs := make([]models.Message, n)
	for i := range msgs {
		msgs[i] = userMsg(fmt.Sprintf("message %d", i))
	}
	return msgs
}

func TestAppendEnforcesCap(t *testing.T) {
	m := NewManager(30, nil, slog.New(slog.DiscardHandler))

	msgs := manyMessages(29)
	msgs = m.Append(msgs, userMsg("a"), userMsg("b"), userMsg("c"))
	if len(msgs) != 30 {
		t.Fatalf("len = %d, want 30", len(msgs))
	}
	if msgs[len(msgs)-1].Content != "c" {
		t.Errorf("last message = %q, want %q", msgs[len(msgs)-1].Content, "c")
	}
	if msgs[0].Content != "message 2" {
		t.Errorf("first message = %q, want oldest dropped", msgs[0].Content)
	}
}

func TestCompactSummarizesOlderHalf(t *testing.T) {
	sum := &stubSummarizer{summary: "user explored Tel Aviv layers"}
	m := NewManager(30, sum, slog.New(slog.DiscardHandler))

	got := m.Compact(context.Background(), manyMessages(31))
	if sum.calls != 1 {
		t.Fatalf("summarizer calls = %d, want 1", sum.calls)
	}
	// 20 recent messages plus one summary message.
	if len(got) != 21 {
		t.Fatalf("len = %d, want 21", len(got))
	}
	first := got[0]
	if first.Role != models.RoleAssistant {
		t.Errorf("summary role = %q, want assistant", first.Role)
	}
	if !strings.HasPrefix(first.Content, "Conversation summary so far: ") {
		t.Errorf("summary content = %q", first.Content)
	}
	if got[1].Content != "message 11" {
		t.Errorf("first kept message = %q, want %q", got[1].Content, "message 11")
	}
}

func TestCompactAtThresholdNoop(t *testing.T) {
	sum := &stubSummarizer{summary: "unused"}
	m := NewManager(30, sum, slog.New(slog.DiscardHandler))

	// Exactly at the cap: compaction fires only strictly above it.
	got := m.Compact(context.Background(), manyMessages(30))
	if sum.calls != 0 {
		t.Errorf("summarizer calls = %d, want 0", sum.calls)
	}
	if len(got) != 30 {
		t.Errorf("len = %d, want 30", len(got))
	}
}

func TestCompactSwallowsSummarizerError(t *testing.T) {
	sum := &stubSummarizer{err: errors.New("model unavailable")}
	m := NewManager(30, sum, slog.New(slog.DiscardHandler))

	got := m.Compact(context.Background(), manyMessages(35))
	if len(got) != 30 {
		t.Fatalf("len = %d, want hard trim to 30", len(got))
	}
	for _, msg := range got {
		if strings.HasPrefix(msg.Content, "Conversation summary so far: ") {
			t.Error("summary message present despite summarizer error")
		}
	}
}

func TestPresentedViewDropsOrphanToolMessages(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleTool, ToolCallID: "stale-1", Content: "orphan from trimmed turn"},
		userMsg("hello"),
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "call-1", Name: "web_search", Arguments: json.RawMessage(`{}`)},
			},
		},
		{Role: models.RoleTool, ToolCallID: "call-1", Content: "result"},
		{Role: models.RoleTool, ToolCallID: "call-9", Content: "mismatched"},
		{Role: models.RoleAssistant, Content: "done"},
	}

	got := PresentedView(msgs)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4: %+v", len(got), got)
	}
	for _, msg := range got {
		if msg.Role == models.RoleTool && msg.ToolCallID != "call-1" {
			t.Errorf("unexpected tool message kept: %+v", msg)
		}
	}
}

func TestPresentedViewResetsAfterPlainAssistant(t *testing.T) {
	msgs := []models.Message{
		{
			Role:      models.RoleAssistant,
			ToolCalls: []models.ToolCall{{ID: "call-1", Name: "map_call"}},
		},
		{Role: models.RoleAssistant, Content: "interjection"},
		{Role: models.RoleTool, ToolCallID: "call-1", Content: "late"},
	}
	got := PresentedView(msgs)
	for _, msg := range got {
		if msg.Role == models.RoleTool {
			t.Error("tool message after intervening assistant should be dropped")
		}
	}
}

func TestLastToolCallIDs(t *testing.T) {
	msgs := []models.Message{
		userMsg("hi"),
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "a", Name: "map_call"},
				{ID: "b", Name: "map_call"},
			},
		},
	}
	ids := LastToolCallIDs(msgs)
	if len(ids) != 2 || !ids["a"] || !ids["b"] {
		t.Errorf("LastToolCallIDs() = %v", ids)
	}

	if ids := LastToolCallIDs([]models.Message{userMsg("hi")}); ids != nil {
		t.Errorf("LastToolCallIDs(no tool calls) = %v, want nil", ids)
	}
	if ids := LastToolCallIDs(nil); ids != nil {
		t.Errorf("LastToolCallIDs(nil) = %v, want nil", ids)
	}
}

func TestLastToolCallIDsMixedVenueTurn(t *testing.T) {
	// One assistant batch mixing a server tool and a deferred map call:
	// the server result is already in the transcript, so only the
	// deferred id stays outstanding for the client to answer.
	msgs := []models.Message{
		userMsg("find bus stops near the beach"),
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "call-server", Name: "google_geocode"},
				{ID: "call-client", Name: "map_call"},
			},
		},
		{Role: models.RoleTool, ToolCallID: "call-server", Content: `{"ok":true}`},
	}

	ids := LastToolCallIDs(msgs)
	if len(ids) != 1 || !ids["call-client"] {
		t.Fatalf("LastToolCallIDs() = %v, want only call-client", ids)
	}

	folded, dropped := FoldClientResults([]models.ClientToolResult{
		{ToolCallID: "call-client", Result: json.RawMessage(`{"ok":true}`)},
	}, ids)
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if len(folded) != 1 || folded[0].ToolCallID != "call-client" {
		t.Errorf("folded = %+v", folded)
	}
}

func TestLastToolCallIDsAllAnswered(t *testing.T) {
	msgs := []models.Message{
		{
			Role:      models.RoleAssistant,
			ToolCalls: []models.ToolCall{{ID: "a", Name: "web_search"}},
		},
		{Role: models.RoleTool, ToolCallID: "a", Content: `{"ok":true}`},
	}
	if ids := LastToolCallIDs(msgs); ids != nil {
		t.Errorf("LastToolCallIDs(fully answered) = %v, want nil", ids)
	}

	// A plain assistant reply after the results closes the turn too.
	msgs = append(msgs, models.Message{Role: models.RoleAssistant, Content: "done"})
	if ids := LastToolCallIDs(msgs); ids != nil {
		t.Errorf("LastToolCallIDs(closed turn) = %v, want nil", ids)
	}
}

func TestFoldClientResultsGroupsAndDrops(t *testing.T) {
	expected := map[string]bool{"a": true, "b": true}
	results := []models.ClientToolResult{
		{ToolCallID: "a", Result: json.RawMessage(`{"ok":true}`)},
		{ToolCallID: "a", Result: json.RawMessage(`{"ok":true,"second":1}`)},
		{ToolCallID: "b", Result: json.RawMessage(`"done"`)},
		{ToolCallID: "rogue", Result: json.RawMessage(`{}`)},
	}

	folded, dropped := FoldClientResults(results, expected)
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(folded) != 2 {
		t.Fatalf("folded = %d messages, want 2", len(folded))
	}
	if folded[0].ToolCallID != "a" || folded[1].ToolCallID != "b" {
		t.Errorf("fold order = %q, %q", folded[0].ToolCallID, folded[1].ToolCallID)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(folded[0].Content), &arr); err != nil {
		t.Fatalf("grouped content not a JSON array: %v", err)
	}
	if len(arr) != 2 {
		t.Errorf("grouped content has %d items, want 2", len(arr))
	}
	if folded[1].Content != `"done"` {
		t.Errorf("single result content = %q", folded[1].Content)
	}
}

func TestFoldClientResultsEmptyPayload(t *testing.T) {
	folded, _ := FoldClientResults(
		[]models.ClientToolResult{{ToolCallID: "a"}},
		map[string]bool{"a": true},
	)
	if len(folded) != 1 || folded[0].Content != "null" {
		t.Errorf("folded = %+v, want null content", folded)
	}
}
