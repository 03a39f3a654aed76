// Package authn authenticates console operators.
//
// Two strategies exist: directory authentication (an Active Directory bind
// with the operator's own credentials) and local verification against the
// flat-file credential store. When the directory is enabled it is tried
// first; any directory failure, including an unreachable server, degrades
// to the local path. Callers are never told which stage rejected them.
package authn

import (
	"context"
	"errors"

	"github.com/mbressan/step-console/internal/audit"
)

// ErrAuthFailed is the single failure returned to callers. It deliberately
// carries no detail about which stage rejected the credentials.
var ErrAuthFailed = errors.New("invalid username or password")

// Method identifies the authentication source of an identity.
type Method string

const (
	MethodLocal     Method = "local"
	MethodDirectory Method = "active_directory"
)

// Identity is an authenticated operator, normalized regardless of source.
type Identity struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Method      Method `json:"auth_method"`
}

// Strategy is one way of turning credentials into an identity.
type Strategy interface {
	// Authenticate verifies the credentials. A nil identity with a nil
	// error is not a valid result; failures return an error.
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
}

// Chain tries directory authentication first (when configured), then the
// local store.
type Chain struct {
	directory Strategy // nil when directory auth is disabled
	local     Strategy
}

// NewChain builds the authentication chain. directory may be nil.
func NewChain(directory, local Strategy) *Chain {
	return &Chain{directory: directory, local: local}
}

// Authenticate runs the chain. Empty credentials short-circuit to
// ErrAuthFailed without touching the directory service. Every attempt is
// audited with username and method, never the password; client is the
// caller's remote address for the audit trail.
func (c *Chain) Authenticate(ctx context.Context, client, username, password string) (*Identity, error) {
	if username == "" || password == "" {
		audit.LogLogin(client, username, "none", false)
		return nil, ErrAuthFailed
	}

	if c.directory != nil {
		if id, err := c.directory.Authenticate(ctx, username, password); err == nil {
			audit.LogLogin(client, id.Username, string(MethodDirectory), true)
			return id, nil
		}
		// Directory rejection or outage: fall through to local.
	}

	if c.local != nil {
		if id, err := c.local.Authenticate(ctx, username, password); err == nil {
			audit.LogLogin(client, id.Username, string(MethodLocal), true)
			return id, nil
		}
	}

	audit.LogLogin(client, username, "all", false)
	return nil, ErrAuthFailed
}
