// Package history manages a session's conversation transcript: bounded
// growth, summary compaction, and the paired view presented to the
// reasoning engine.
package history

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/haasonsaas/mapgate/pkg/models"
)

// DefaultLimit bounds the stored transcript length.
const DefaultLimit = 30

const summaryPrefix = "Conversation summary so far: "

// Summarizer condenses a slice of messages into a short text summary.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []models.Message) (string, error)
}

// Manager applies the transcript policy. Limit is the hard cap enforced
// after every mutation; compaction triggers once the cap is exceeded
// and keeps the most recent keepRecent messages verbatim behind a
// synthetic summary.
type Manager struct {
	limit      int
	keepRecent int
	summarizer Summarizer
	logger     *slog.Logger
}

// NewManager creates a Manager. A nil summarizer disables compaction,
// leaving only the hard trim.
func NewManager(limit int, summarizer Summarizer, logger *slog.Logger) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	keep := limit - 10
	if keep < 1 {
		keep = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{limit: limit, keepRecent: keep, summarizer: summarizer, logger: logger}
}

// Limit returns the hard transcript cap.
func (m *Manager) Limit() int { return m.limit }

// Append adds messages and enforces the hard cap.
func (m *Manager) Append(msgs []models.Message, added ...models.Message) []models.Message {
	return m.Trim(append(msgs, added...))
}

// Trim drops the oldest messages beyond the cap. Pairing repair is the
// job of PresentedView, not Trim: a tool message orphaned by the cut is
// kept in storage but hidden from the model.
func (m *Manager) Trim(msgs []models.Message) []models.Message {
	if len(msgs) <= m.limit {
		return msgs
	}
	return msgs[len(msgs)-m.limit:]
}

// Compact folds the transcript's older half into a synthetic summary
// message once the cap is exceeded; a transcript exactly at the cap is
// left alone. Summarization failures are logged and swallowed; the hard
// trim still applies, so a broken summarizer degrades to plain
// truncation rather than blocking the turn.
func (m *Manager) Compact(ctx context.Context, msgs []models.Message) []models.Message {
	if len(msgs) <= m.limit || m.summarizer == nil {
		return m.Trim(msgs)
	}

	cut := len(msgs) - m.keepRecent
	if cut <= 0 {
		return m.Trim(msgs)
	}
	older, recent := msgs[:cut], msgs[cut:]

	summary, err := m.summarizer.Summarize(ctx, older)
	if err != nil {
		m.logger.Warn("history summarization failed, falling back to truncation", "error", err)
		return m.Trim(msgs)
	}
	if summary == "" {
		return m.Trim(msgs)
	}

	out := make([]models.Message, 0, len(recent)+1)
	out = append(out, models.Message{
		Role:    models.RoleAssistant,
		Content: summaryPrefix + summary,
	})
	out = append(out, recent...)
	m.logger.Debug("history compacted", "summarized", len(older), "kept", len(recent))
	return out
}

// PresentedView returns the transcript as shown to the reasoning
// engine: tool messages are kept only when they answer a tool call of
// the nearest preceding assistant message. Orphans stay in storage but
// are hidden, so provider APIs that reject unpaired tool results never
// see them.
func PresentedView(msgs []models.Message) []models.Message {
	var out []models.Message
	allowed := map[string]bool{}

	for _, msg := range msgs {
		switch {
		case msg.Role == models.RoleTool:
			if !allowed[msg.ToolCallID] {
				continue
			}
			out = append(out, msg)
		case msg.HasToolCalls():
			allowed = make(map[string]bool, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				allowed[tc.ID] = true
			}
			out = append(out, msg)
		default:
			allowed = map[string]bool{}
			out = append(out, msg)
		}
	}
	return out
}

// LastToolCallIDs returns the still-unanswered tool-call ids of the
// most recent assistant message that requests tools, or nil. These are
// the only ids a client result submission may answer. Tool messages
// after that assistant message (server-immediate results of a mixed
// batch) count as answers, so only the deferred ids stay outstanding;
// any other intervening message closes the turn and nothing is
// outstanding.
func LastToolCallIDs(msgs []models.Message) map[string]bool {
	answered := map[string]bool{}
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		switch {
		case msg.Role == models.RoleTool:
			answered[msg.ToolCallID] = true
		case msg.HasToolCalls():
			ids := make(map[string]bool, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				if !answered[tc.ID] {
					ids[tc.ID] = true
				}
			}
			if len(ids) == 0 {
				return nil
			}
			return ids
		default:
			return nil
		}
	}
	return nil
}

// FoldClientResults converts client tool result reports into tool
// messages, grouping multiple reports for the same call id into one
// message and dropping reports that do not answer an id in expected.
// Dropped counts are returned so the caller can log them.
func FoldClientResults(results []models.ClientToolResult, expected map[string]bool) (folded []models.Message, dropped int) {
	type group struct {
		id    string
		items []json.RawMessage
	}
	var order []*group
	byID := map[string]*group{}

	for _, res := range results {
		if !expected[res.ToolCallID] {
			dropped++
			continue
		}
		g, ok := byID[res.ToolCallID]
		if !ok {
			g = &group{id: res.ToolCallID}
			byID[res.ToolCallID] = g
			order = append(order, g)
		}
		payload := res.Result
		if len(payload) == 0 {
			payload = json.RawMessage(`null`)
		}
		g.items = append(g.items, payload)
	}

	for _, g := range order {
		var content []byte
		if len(g.items) == 1 {
			content = g.items[0]
		} else {
			content, _ = json.Marshal(g.items)
		}
		folded = append(folded, models.Message{
			Role:       models.RoleTool,
			Content:    string(content),
			ToolCallID: g.id,
		})
	}
	return folded, dropped
}
