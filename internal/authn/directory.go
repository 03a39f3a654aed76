package authn

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/mbressan/step-console/internal/config"
)

// DirectoryStrategy authenticates against Active Directory by binding with
// the operator's own credentials and then looking up the account entry.
type DirectoryStrategy struct {
	cfg config.ADConfig
}

var _ Strategy = (*DirectoryStrategy)(nil)

// NewDirectoryStrategy creates a directory strategy from the AD config.
func NewDirectoryStrategy(cfg config.ADConfig) *DirectoryStrategy {
	return &DirectoryStrategy{cfg: cfg}
}

// Authenticate binds as the user, fetches the account entry, and applies
// the group restriction. Any connection failure is an authentication
// failure from the chain's point of view; it falls back to local.
func (s *DirectoryStrategy) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	serverURL, err := s.serverURL()
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: s.cfg.Timeout.Std()}
	conn, err := ldap.DialURL(serverURL, ldap.DialWithDialer(dialer))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to directory %s: %w", s.cfg.Server, err)
	}
	defer conn.Close()
	conn.SetTimeout(s.cfg.Timeout.Std())

	if s.cfg.UseTLS && !strings.HasPrefix(serverURL, "ldaps://") {
		if err := conn.StartTLS(&tls.Config{ServerName: hostOf(serverURL)}); err != nil {
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	// Qualify bare usernames with the configured domain. Names already in
	// DOMAIN\user or user@realm form are passed through untouched.
	bindUsername := username
	if !strings.Contains(username, `\`) && !strings.Contains(username, "@") {
		bindUsername = s.cfg.Domain + `\` + username
	}

	if err := conn.Bind(bindUsername, password); err != nil {
		return nil, ErrAuthFailed
	}

	shortName := shortUsername(username)

	entry, err := s.searchAccount(conn, shortName)
	if err != nil {
		return nil, err
	}

	groups := entry.GetAttributeValues("memberOf")
	if !s.groupAllowed(groups) {
		return nil, ErrAuthFailed
	}

	displayName := entry.GetAttributeValue("displayName")
	if displayName == "" {
		displayName = entry.GetAttributeValue("cn")
	}
	if displayName == "" {
		displayName = shortName
	}

	return &Identity{
		Username:    shortName,
		DisplayName: displayName,
		Email:       entry.GetAttributeValue("mail"),
		Method:      MethodDirectory,
	}, nil
}

// searchAccount looks up the account entry by sAMAccountName.
func (s *DirectoryStrategy) searchAccount(conn *ldap.Conn, shortName string) (*ldap.Entry, error) {
	filter := fmt.Sprintf("(&(objectClass=user)(sAMAccountName=%s))", ldap.EscapeFilter(shortName))
	req := ldap.NewSearchRequest(
		s.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		filter,
		[]string{"cn", "mail", "displayName", "memberOf"},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("directory search failed: %w", err)
	}
	if len(res.Entries) == 0 {
		return nil, ErrAuthFailed
	}
	return res.Entries[0], nil
}

// groupAllowed applies the required-group restriction: at least one
// memberOf value must contain one of the required identifiers,
// case-insensitively. No configured groups means everyone is allowed.
func (s *DirectoryStrategy) groupAllowed(memberOf []string) bool {
	if len(s.cfg.RequiredGroups) == 0 {
		return true
	}
	for _, required := range s.cfg.RequiredGroups {
		required = strings.ToLower(strings.TrimSpace(required))
		if required == "" {
			continue
		}
		for _, group := range memberOf {
			if strings.Contains(strings.ToLower(group), required) {
				return true
			}
		}
	}
	return false
}

// serverURL builds the dial URL from the configured server and port.
func (s *DirectoryStrategy) serverURL() (string, error) {
	server := s.cfg.Server
	if !strings.Contains(server, "://") {
		server = "ldap://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid directory server %q: %w", s.cfg.Server, err)
	}
	if u.Port() == "" && s.cfg.Port > 0 {
		u.Host = fmt.Sprintf("%s:%d", u.Hostname(), s.cfg.Port)
	}
	return u.String(), nil
}

// shortUsername strips a DOMAIN\ prefix or @realm suffix.
func shortUsername(username string) string {
	if i := strings.LastIndex(username, `\`); i >= 0 {
		return username[i+1:]
	}
	if i := strings.Index(username, "@"); i >= 0 {
		return username[:i]
	}
	return username
}

// hostOf extracts the hostname for TLS server name verification.
func hostOf(serverURL string) string {
	if u, err := url.Parse(serverURL); err == nil {
		return u.Hostname()
	}
	return serverURL
}
