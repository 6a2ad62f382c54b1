package server

import (
	"strings"

	"github.com/haasonsaas/mapgate/internal/layers"
	"github.com/haasonsaas/mapgate/internal/mapcmd"
	"github.com/haasonsaas/mapgate/pkg/models"
)

const basePrompt = `You are a helpful assistant embedded in an interactive map application for Israel. You help users navigate the map, work with layers, find places, and answer geographic questions.

Language rules:
- Always answer in the language the user wrote in (Hebrew or English).
- Keep answers short and concrete; this is a chat widget next to a map, not a document.

Tool choice rules:
- Use map_call whenever the user wants to change what the map shows: navigation, layers, filters, selections, drawing, or spatial queries against map layers.
- Use google_places_lookup, google_geocode, or google_route for real-world places, addresses, and travel questions; their results include ITM x/y you can feed into map_call.
- Use web_search only when the answer is not already in the conversation and not available from the map or Google tools.
- Never invent coordinates or layer names. If you are missing a parameter, ask a short clarifying question.
- After client-executed map commands report their results, use those results; do not repeat the same commands.

Map API reference:
` + mapcmd.APIGuide

// systemPrompt assembles the per-session system message: the base
// instructions, the registered capability list, and the session's layer
// catalog when one was supplied.
func (s *Server) systemPrompt(catalog []models.Layer) models.Message {
	var b strings.Builder
	b.WriteString(basePrompt)
	if s.registry != nil {
		if usage := s.registry.RenderUsage(); usage != "" {
			b.WriteString("\n\n")
			b.WriteString(usage)
		}
	}
	if block := layers.RenderPrompt(catalog); block != "" {
		b.WriteString("\n\n")
		b.WriteString(block)
	}
	return models.Message{Role: models.RoleSystem, Content: b.String()}
}
