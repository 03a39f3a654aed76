package session

import (
	"errors"
	"testing"
	"time"

	"github.com/mbressan/step-console/internal/authn"
)

var testIdentity = authn.Identity{
	Username:    "alice",
	DisplayName: "Alice",
	Method:      authn.MethodLocal,
}

// newTestManager returns a manager with a controllable clock.
func newTestManager(timeout time.Duration) (*Manager, *time.Time) {
	m := NewManager(timeout)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

// =============================================================================
// Manager Tests
// =============================================================================

func TestU_Manager_CreateAndTouch(t *testing.T) {
	m, _ := newTestManager(30 * time.Minute)

	token := m.Create(testIdentity)
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	sess, err := m.Touch(token)
	if err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if sess.Identity.Username != "alice" {
		t.Errorf("expected alice, got %s", sess.Identity.Username)
	}
}

func TestU_Manager_UnknownToken(t *testing.T) {
	m, _ := newTestManager(30 * time.Minute)

	if _, err := m.Touch("not-a-token"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestU_Manager_IdleTimeout(t *testing.T) {
	m, now := newTestManager(30 * time.Minute)
	token := m.Create(testIdentity)

	// Activity just inside the window keeps the session alive.
	*now = now.Add(29 * time.Minute)
	if _, err := m.Touch(token); err != nil {
		t.Fatalf("Touch inside the window failed: %v", err)
	}

	// The timer was refreshed, so another 29 minutes is still fine.
	*now = now.Add(29 * time.Minute)
	if _, err := m.Touch(token); err != nil {
		t.Fatalf("Touch after refresh failed: %v", err)
	}

	// Idle past the timeout expires and destroys the session.
	*now = now.Add(31 * time.Minute)
	if _, err := m.Touch(token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// The expired session is gone, not just flagged.
	if _, err := m.Touch(token); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after expiry, got %v", err)
	}
}

func TestU_Manager_ExpiredSessionReportsIdentity(t *testing.T) {
	m, now := newTestManager(time.Minute)
	token := m.Create(testIdentity)

	*now = now.Add(2 * time.Minute)
	sess, err := m.Touch(token)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// Callers audit the expiry, so the identity must survive the error.
	if sess.Identity.Username != "alice" {
		t.Errorf("expected identity on expired session, got %q", sess.Identity.Username)
	}
}

func TestU_Manager_Destroy(t *testing.T) {
	m, _ := newTestManager(30 * time.Minute)
	token := m.Create(testIdentity)

	m.Destroy(token)
	if _, err := m.Touch(token); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after Destroy, got %v", err)
	}

	// Destroying twice is a no-op.
	m.Destroy(token)
}

func TestU_Manager_ConcurrentSessionsPerUser(t *testing.T) {
	m, _ := newTestManager(30 * time.Minute)

	first := m.Create(testIdentity)
	second := m.Create(testIdentity)
	if first == second {
		t.Fatal("expected distinct tokens")
	}
	if m.Count() != 2 {
		t.Errorf("expected 2 sessions, got %d", m.Count())
	}

	m.Destroy(first)
	if _, err := m.Touch(second); err != nil {
		t.Errorf("second session affected by destroying the first: %v", err)
	}
}
