// Package session manages browser session lifecycles: creation,
// authentication with a rotating magic secret, and persistence.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/mapgate/internal/store"
	"github.com/haasonsaas/mapgate/pkg/models"
)

// Sentinel errors surfaced to the transport layer. Handlers map all of
// them to the same generic 401 so callers cannot probe which check
// failed.
var (
	ErrUnauthenticated = errors.New("session: missing credentials")
	ErrSessionExpired  = errors.New("session: not found or expired")
	ErrInvalidSecret   = errors.New("session: invalid secret")
)

const keyPrefix = "session:"

// Manager owns session blobs in the store.
type Manager struct {
	store         store.Store
	ttl           time.Duration
	magicLifetime time.Duration
	logger        *slog.Logger

	now func() time.Time
}

// NewManager creates a Manager. ttl bounds session idle lifetime;
// magicLifetime bounds how long one magic value stays valid before it
// is rotated.
func NewManager(st store.Store, ttl, magicLifetime time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:         st,
		ttl:           ttl,
		magicLifetime: magicLifetime,
		logger:        logger,
		now:           time.Now,
	}
}

// Bootstrap creates and persists a fresh session carrying the supplied
// layer catalog.
func (m *Manager) Bootstrap(ctx context.Context, layers []models.Layer) (*models.Session, error) {
	magic, err := newMagic()
	if err != nil {
		return nil, err
	}

	now := m.now()
	sess := &models.Session{
		ID:             uuid.NewString(),
		Magic:          magic,
		MagicExpiresAt: now.Add(m.magicLifetime),
		CreatedAt:      now,
		LastSeenAt:     now,
		Layers:         layers,
	}

	if err := m.Persist(ctx, sess); err != nil {
		return nil, err
	}

	m.logger.Info("session bootstrapped", "session_id", sess.ID, "layers", len(layers))
	return sess, nil
}

// Authenticate loads the session and verifies the presented magic.
// When the stored magic has passed its lifetime, a replacement is
// generated in the returned session; nothing is written to the store —
// the caller persists the session (with the rotated magic) at the end
// of a successful request, so a failed request never advances state.
func (m *Manager) Authenticate(ctx context.Context, sessionID, magic string) (*models.Session, error) {
	if sessionID == "" || magic == "" {
		return nil, ErrUnauthenticated
	}

	raw, err := m.store.Get(ctx, keyPrefix+sessionID)
	if err == store.ErrNotFound {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(sess.Magic), []byte(magic)) != 1 {
		return nil, ErrInvalidSecret
	}

	now := m.now()
	if !now.Before(sess.MagicExpiresAt) {
		rotated, err := newMagic()
		if err != nil {
			return nil, err
		}
		sess.Magic = rotated
		sess.MagicExpiresAt = now.Add(m.magicLifetime)
		m.logger.Debug("session magic rotated", "session_id", sess.ID)
	}
	sess.LastSeenAt = now

	return &sess, nil
}

// Persist writes the session blob, refreshing its idle TTL.
func (m *Manager) Persist(ctx context.Context, sess *models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, keyPrefix+sess.ID, raw, m.ttl); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Delete removes the session.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, keyPrefix+sessionID)
}

func newMagic() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate magic: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
