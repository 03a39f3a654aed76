package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mbressan/step-console/internal/api/dto"
	apierrors "github.com/mbressan/step-console/internal/api/errors"
	"github.com/mbressan/step-console/internal/api/middleware"
	"github.com/mbressan/step-console/internal/audit"
	"github.com/mbressan/step-console/internal/authn"
	"github.com/mbressan/step-console/internal/registry"
	"github.com/mbressan/step-console/internal/session"
)

// AuthHandler handles login, logout and session introspection.
type AuthHandler struct {
	chain         *authn.Chain
	sessions      *session.Manager
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler. secureCookies should be true
// whenever the console is served over TLS.
func NewAuthHandler(chain *authn.Chain, sessions *session.Manager, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		chain:         chain,
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}

	client := middleware.ClientIP(r)
	identity, err := h.chain.Authenticate(r.Context(), client, req.Username, req.Password)
	if err != nil {
		respondMapped(w, err)
		return
	}

	token := h.sessions.Create(*identity)
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})

	resp := sessionResponse(*identity)
	resp.LoginTime = time.Now().Format(registry.TimeFormat)
	respondJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
		if sess, err := h.sessions.Touch(cookie.Value); err == nil {
			audit.LogLogout(middleware.ClientIP(r), sess.Identity.Username)
		}
		h.sessions.Destroy(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/v1/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		respondMapped(w, session.ErrNoSession)
		return
	}

	resp := sessionResponse(sess.Identity)
	resp.LoginTime = sess.LoginTime.Format(registry.TimeFormat)
	respondJSON(w, http.StatusOK, resp)
}

func sessionResponse(identity authn.Identity) dto.SessionResponse {
	return dto.SessionResponse{
		Username:    identity.Username,
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
		AuthMethod:  string(identity.Method),
	}
}
