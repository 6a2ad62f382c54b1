package models

import "time"

// Session is the full per-browser-session state persisted as one blob.
//
// The session id is the routing key and is never shown to the reasoning
// engine. Magic is a rotating secret proving request authenticity; it
// expires more frequently than the session itself and is replaced in
// place during authentication.
type Session struct {
	ID             string    `json:"id"`
	Magic          string    `json:"magic"`
	MagicExpiresAt time.Time `json:"magic_expires_at"`
	CreatedAt      time.Time `json:"created_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	Messages       []Message `json:"messages"`
	Layers         []Layer   `json:"layers,omitempty"`
}
