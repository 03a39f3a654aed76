package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mbressan/step-console/internal/api/dto"
	"github.com/mbressan/step-console/internal/audit"
	"github.com/mbressan/step-console/internal/session"
)

// SessionCookie is the name of the session token cookie.
const SessionCookie = "stepconsole_session"

type contextKey string

const sessionKey contextKey = "session"

// RequireSession rejects requests without a live session. A valid token
// refreshes the idle timer; an expired one is destroyed and audited, and
// the cookie is cleared so the browser stops presenting it.
func RequireSession(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil {
				unauthorized(w, "UNAUTHORIZED", "Authentication required")
				return
			}

			sess, err := sessions.Touch(cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrSessionExpired) {
					audit.LogSessionExpired(ClientIP(r), sess.Identity.Username)
					ClearSessionCookie(w)
					unauthorized(w, "SESSION_EXPIRED", "Session expired, please log in again")
					return
				}
				unauthorized(w, "UNAUTHORIZED", "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(session.Session)
	return sess, ok
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func unauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(&dto.APIError{Code: code, Message: message})
}
