// Package session tracks authenticated console sessions.
//
// Sessions live in memory only: a restart logs everyone out. Each session
// carries the identity plus login and last-activity timestamps, and is
// invalidated once idle longer than the configured timeout. Multiple
// concurrent sessions per identity are allowed.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbressan/step-console/internal/authn"
)

var (
	// ErrNoSession is returned for unknown or logged-out tokens.
	ErrNoSession = errors.New("no active session")

	// ErrSessionExpired is returned once the idle timeout has elapsed.
	// The session is destroyed as a side effect.
	ErrSessionExpired = errors.New("session expired")
)

// Session is the server-side state for one authenticated operator.
type Session struct {
	Identity     authn.Identity
	LoginTime    time.Time
	LastActivity time.Time
}

// Manager owns the token→session map and the idle timeout policy.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	now      func() time.Time
}

// NewManager creates a session manager with the given idle timeout.
func NewManager(timeout time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Create registers a new session for identity and returns its token.
func (m *Manager) Create(identity authn.Identity) string {
	token := uuid.NewString()
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = &Session{
		Identity:     identity,
		LoginTime:    now,
		LastActivity: now,
	}
	return token
}

// Touch validates the token, enforces the idle timeout, and refreshes the
// last-activity timestamp. An expired session is removed before
// ErrSessionExpired is returned, so the next request is anonymous.
func (m *Manager) Touch(token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNoSession
	}

	now := m.now()
	if now.Sub(sess.LastActivity) > m.timeout {
		delete(m.sessions, token)
		return *sess, ErrSessionExpired
	}

	sess.LastActivity = now
	return *sess, nil
}

// Destroy removes the session for token. Unknown tokens are a no-op.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// Count returns the number of live sessions, expired ones included until
// their next Touch.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
