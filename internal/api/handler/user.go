package handler

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/mbressan/step-console/internal/api/dto"
	apierrors "github.com/mbressan/step-console/internal/api/errors"
	"github.com/mbressan/step-console/internal/api/middleware"
	"github.com/mbressan/step-console/internal/audit"
	"github.com/mbressan/step-console/internal/userstore"
)

// User account rules: the admin account cannot be removed, usernames are
// short path-safe tokens, passwords have a minimum length.
const (
	adminUsername     = "admin"
	minUsernameLength = 3
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// UserHandler manages local console accounts.
type UserHandler struct {
	store *userstore.Store
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store *userstore.Store) *UserHandler {
	return &UserHandler{store: store}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List()
	if err != nil {
		respondMapped(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.UserListResponse{Users: users, Total: len(users)})
}

// Save handles POST /api/v1/users. An existing user gets its password
// reset; a new one is created.
func (h *UserHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req dto.UserSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}

	if len(req.Username) < minUsernameLength || !usernamePattern.MatchString(req.Username) {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(
			"Username must be at least 3 characters of letters, digits, dot, underscore or hyphen"))
		return
	}
	if len(req.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(
			"Password must be at least 8 characters"))
		return
	}

	if err := h.store.Upsert(req.Username, req.Password); err != nil {
		respondMapped(w, err)
		return
	}

	sess, _ := middleware.SessionFrom(r.Context())
	audit.LogUserSaved(middleware.ClientIP(r), sess.Identity.Username, req.Username)

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/users/{username}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	sess, _ := middleware.SessionFrom(r.Context())

	if username == adminUsername {
		respondError(w, http.StatusForbidden, apierrors.NewForbidden("The admin account cannot be deleted"))
		return
	}
	if username == sess.Identity.Username {
		respondError(w, http.StatusForbidden, apierrors.NewForbidden("You cannot delete your own account"))
		return
	}

	users, err := h.store.List()
	if err != nil {
		respondMapped(w, err)
		return
	}
	if !contains(users, username) {
		respondMapped(w, userstore.ErrUserNotFound)
		return
	}

	if err := h.store.Remove(username); err != nil {
		respondMapped(w, err)
		return
	}

	audit.LogUserDeleted(middleware.ClientIP(r), sess.Identity.Username, username)
	w.WriteHeader(http.StatusNoContent)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
