package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/haasonsaas/mapgate/internal/store"
	"github.com/haasonsaas/mapgate/pkg/models"
)

func newTestManager(t *testing.T) (*Manager, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	m := NewManager(st, time.Hour, 10*time.Minute, slog.New(slog.DiscardHandler))
	return m, st
}

func TestBootstrapAndAuthenticate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Bootstrap(ctx, []models.Layer{{ID: "roads", Label: "Roads"}})
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if sess.ID == "" || sess.Magic == "" {
		t.Fatal("Bootstrap() returned empty id or magic")
	}
	if len(sess.Magic) != 64 {
		t.Errorf("magic length = %d, want 64 hex chars", len(sess.Magic))
	}

	got, err := m.Authenticate(ctx, sess.ID, sess.Magic)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("Authenticate() id = %q, want %q", got.ID, sess.ID)
	}
	if len(got.Layers) != 1 || got.Layers[0].ID != "roads" {
		t.Errorf("Authenticate() layers = %+v", got.Layers)
	}
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Authenticate(ctx, "", "secret"); err != ErrUnauthenticated {
		t.Errorf("Authenticate(no sid) error = %v, want ErrUnauthenticated", err)
	}
	if _, err := m.Authenticate(ctx, "sid", ""); err != ErrUnauthenticated {
		t.Errorf("Authenticate(no magic) error = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticateUnknownSession(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Authenticate(context.Background(), "ghost", "secret"); err != ErrSessionExpired {
		t.Errorf("Authenticate() error = %v, want ErrSessionExpired", err)
	}
}

func TestAuthenticateWrongMagic(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Bootstrap(ctx, nil)
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if _, err := m.Authenticate(ctx, sess.ID, "not-the-magic"); err != ErrInvalidSecret {
		t.Errorf("Authenticate() error = %v, want ErrInvalidSecret", err)
	}

	// A failed attempt must not disturb the stored credentials.
	if _, err := m.Authenticate(ctx, sess.ID, sess.Magic); err != nil {
		t.Errorf("Authenticate() with correct magic after failure error = %v", err)
	}
}

func TestAuthenticateRotatesExpiredMagic(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }

	sess, err := m.Bootstrap(ctx, nil)
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	oldMagic := sess.Magic

	now = now.Add(11 * time.Minute)
	got, err := m.Authenticate(ctx, sess.ID, oldMagic)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.Magic == oldMagic {
		t.Error("expired magic was not rotated")
	}
	if !got.MagicExpiresAt.After(now) {
		t.Error("rotated magic expiry not advanced")
	}

	// Rotation is in-memory only until the caller persists: the store
	// still holds the old magic, so a retry with it succeeds.
	again, err := m.Authenticate(ctx, sess.ID, oldMagic)
	if err != nil {
		t.Fatalf("Authenticate() retry error = %v", err)
	}
	if again.Magic == oldMagic {
		t.Error("retry did not rotate")
	}

	// After persisting, only the rotated magic works.
	if err := m.Persist(ctx, got); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if _, err := m.Authenticate(ctx, sess.ID, oldMagic); err != ErrInvalidSecret {
		t.Errorf("Authenticate() with stale magic error = %v, want ErrInvalidSecret", err)
	}
	if _, err := m.Authenticate(ctx, sess.ID, got.Magic); err != nil {
		t.Errorf("Authenticate() with rotated magic error = %v", err)
	}
}

func TestAuthenticateFreshMagicNotRotated(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Bootstrap(ctx, nil)
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	got, err := m.Authenticate(ctx, sess.ID, sess.Magic)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.Magic != sess.Magic {
		t.Error("fresh magic was rotated")
	}
}

func TestSessionExpiresWithStoreTTL(t *testing.T) {
	st := store.NewMemoryStore()
	m := NewManager(st, time.Hour, 10*time.Minute, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	sess, err := m.Bootstrap(ctx, nil)
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if err := m.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Authenticate(ctx, sess.ID, sess.Magic); err != ErrSessionExpired {
		t.Errorf("Authenticate() after delete error = %v, want ErrSessionExpired", err)
	}
}
