package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haasonsaas/mapgate/internal/history"
	"github.com/haasonsaas/mapgate/internal/layers"
	"github.com/haasonsaas/mapgate/internal/session"
	"github.com/haasonsaas/mapgate/internal/tools/googlemaps"
	"github.com/haasonsaas/mapgate/pkg/models"
)

const (
	sessionCookie = "sid"
	magicHeader   = "X-Session-Magic"
)

type bootstrapRequest struct {
	// The frontend has shipped the catalog under several names over
	// time; accept all of them.
	Layers        any `json:"layers"`
	MapLayers     any `json:"mapLayers"`
	LayerMetadata any `json:"layerMetadata"`
}

type bootstrapResponse struct {
	Magic string `json:"magic"`
}

// normalizeCatalog picks the first supplied catalog payload and
// normalizes it.
func normalizeCatalog(layersVal, mapLayers, layerMetadata any) []models.Layer {
	raw := layersVal
	if raw == nil {
		raw = mapLayers
	}
	if raw == nil {
		raw = layerMetadata
	}
	return layers.Normalize(raw)
}

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if r.Body != nil {
		// An empty or malformed body just means no catalog.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	catalog := normalizeCatalog(req.Layers, req.MapLayers, req.LayerMetadata)

	sess, err := s.sessions.Bootstrap(r.Context(), catalog)
	if err != nil {
		s.logger.Error("bootstrap failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsBootstrapped.Inc()
	}

	http.SetCookie(w, s.sessionCookie(sess.ID))
	writeJSON(w, http.StatusOK, bootstrapResponse{Magic: sess.Magic})
}

func (s *Server) sessionCookie(sessionID string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(s.cfg.Session.TTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
	}
	// Cross-origin frontends need SameSite=None, which browsers only
	// accept on secure cookies.
	if s.cfg.Server.FrontendOrigin != "" {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
	}
	return cookie
}

// authenticate resolves the session from the cookie and magic header.
// All failure modes collapse into one generic 401 so a caller cannot
// probe which check failed.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	var sessionID string
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		sessionID = cookie.Value
	}
	magic := r.Header.Get(magicHeader)

	sess, err := s.sessions.Authenticate(r.Context(), sessionID, magic)
	if err != nil {
		if errors.Is(err, session.ErrUnauthenticated) ||
			errors.Is(err, session.ErrSessionExpired) ||
			errors.Is(err, session.ErrInvalidSecret) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		} else {
			s.logger.Error("authentication failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return nil, false
	}
	return sess, true
}

type chatRequest struct {
	Message string `json:"message"`

	// Results of previously deferred map commands, reported by the
	// browser. Both naming styles are accepted.
	ToolResults      []models.ClientToolResult `json:"tool_results"`
	ToolResultsCamel []models.ClientToolResult `json:"toolResults"`

	// Optional catalog snapshot, same keys as bootstrap. Adopted when
	// the session has no catalog yet.
	Layers        any `json:"layers"`
	MapLayers     any `json:"mapLayers"`
	LayerMetadata any `json:"layerMetadata"`
}

type chatResponse struct {
	AssistantMessage string                 `json:"assistant_message"`
	Commands         []models.ClientCommand `json:"commands"`
	NewMagic         string                 `json:"new_magic"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	results := req.ToolResults
	if len(results) == 0 {
		results = req.ToolResultsCamel
	}
	if req.Message == "" && len(results) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message or tool results required"})
		return
	}

	if len(sess.Layers) == 0 {
		if catalog := normalizeCatalog(req.Layers, req.MapLayers, req.LayerMetadata); len(catalog) > 0 {
			sess.Layers = catalog
		}
	}

	ctx := r.Context()
	msgs := sess.Messages

	if len(results) > 0 {
		expected := history.LastToolCallIDs(msgs)
		folded, dropped := history.FoldClientResults(results, expected)
		if dropped > 0 {
			s.logger.Warn("dropped client tool results with no matching call",
				"session_id", sess.ID, "dropped", dropped)
		}
		answered := make(map[string]bool, len(folded))
		for _, msg := range folded {
			answered[msg.ToolCallID] = true
		}
		// Every outstanding call id must be answered before the next
		// engine request; fill gaps with an explicit error result.
		for id := range expected {
			if !answered[id] {
				folded = append(folded, models.Message{
					Role:       models.RoleTool,
					Content:    `{"ok":false,"error":"no result reported by client"}`,
					ToolCallID: id,
				})
			}
		}
		msgs = append(msgs, folded...)
	}

	if req.Message != "" {
		msgs = append(msgs, models.Message{Role: models.RoleUser, Content: req.Message})
	}

	before := len(msgs)
	msgs = s.history.Compact(ctx, msgs)
	if s.metrics != nil && before > s.history.Limit() {
		s.metrics.CompactionRuns.Inc()
	}
	msgs = s.history.Trim(msgs)

	base := append([]models.Message{s.systemPrompt(sess.Layers)}, history.PresentedView(msgs)...)

	res, err := s.loop.Run(ctx, base)
	if err != nil {
		// Nothing is persisted: the failed turn must not advance the
		// transcript or rotate the magic.
		s.logger.Error("reasoning loop failed", "session_id", sess.ID, "error", err)
		s.countChat("error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "assistant unavailable"})
		return
	}

	msgs = s.history.Append(msgs, res.Turn...)
	sess.Messages = msgs

	if err := s.sessions.Persist(ctx, sess); err != nil {
		s.logger.Error("session persist failed", "session_id", sess.ID, "error", err)
		s.countChat("error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.countChat("ok")
	if s.metrics != nil {
		s.metrics.LoopRounds.Observe(float64(res.Rounds))
	}

	commands := res.Commands
	if commands == nil {
		commands = []models.ClientCommand{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		AssistantMessage: res.Text,
		Commands:         commands,
		NewMagic:         sess.Magic,
	})
}

type searchResponse struct {
	Suggestions []googlemaps.Suggestion `json:"suggestions"`
	NewMagic    string                  `json:"new_magic"`
	Error       string                  `json:"error,omitempty"`
}

func (s *Server) handleSearchPlaces(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	persist := func() {
		if err := s.sessions.Persist(r.Context(), sess); err != nil {
			s.logger.Error("session persist failed", "session_id", sess.ID, "error", err)
		}
	}

	if s.maps == nil {
		persist()
		writeJSON(w, http.StatusServiceUnavailable, searchResponse{
			Suggestions: []googlemaps.Suggestion{},
			NewMagic:    sess.Magic,
			Error:       "place search is not configured",
		})
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		query = r.URL.Query().Get("query")
	}
	if query == "" {
		persist()
		writeJSON(w, http.StatusOK, searchResponse{Suggestions: []googlemaps.Suggestion{}, NewMagic: sess.Magic})
		return
	}

	suggestions, err := s.maps.Suggest(r.Context(), query)
	if err != nil {
		s.logger.Warn("place suggestions failed", "error", err)
		writeJSON(w, http.StatusBadGateway, searchResponse{
			Suggestions: []googlemaps.Suggestion{},
			Error:       "failed to fetch place suggestions",
		})
		return
	}
	if suggestions == nil {
		suggestions = []googlemaps.Suggestion{}
	}

	persist()
	writeJSON(w, http.StatusOK, searchResponse{Suggestions: suggestions, NewMagic: sess.Magic})
}

func (s *Server) countChat(status string) {
	if s.metrics != nil {
		s.metrics.ChatRequests.WithLabelValues(status).Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
