package authn

import (
	"context"
	"strings"

	"github.com/mbressan/step-console/internal/userstore"
)

// LocalStrategy verifies credentials against the flat-file store.
type LocalStrategy struct {
	store *userstore.Store
}

var _ Strategy = (*LocalStrategy)(nil)

// NewLocalStrategy creates a local verification strategy.
func NewLocalStrategy(store *userstore.Store) *LocalStrategy {
	return &LocalStrategy{store: store}
}

// Authenticate verifies the password against the stored bcrypt hash.
func (s *LocalStrategy) Authenticate(_ context.Context, username, password string) (*Identity, error) {
	if err := s.store.Verify(username, password); err != nil {
		return nil, ErrAuthFailed
	}

	return &Identity{
		Username:    username,
		DisplayName: titleCase(username),
		Email:       "",
		Method:      MethodLocal,
	}, nil
}

// titleCase upper-cases the first letter, matching the display name the
// console shows for local accounts.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
