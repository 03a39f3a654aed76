// Package router provides HTTP routing configuration using Chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbressan/step-console/internal/api/handler"
	"github.com/mbressan/step-console/internal/api/middleware"
	"github.com/mbressan/step-console/internal/authn"
	"github.com/mbressan/step-console/internal/catrust"
	"github.com/mbressan/step-console/internal/issuer"
	"github.com/mbressan/step-console/internal/registry"
	"github.com/mbressan/step-console/internal/session"
	"github.com/mbressan/step-console/internal/stepcli"
	"github.com/mbressan/step-console/internal/userstore"
)

// Config holds router configuration.
type Config struct {
	Version       string
	SecureCookies bool

	Auth     *authn.Chain
	Sessions *session.Manager
	Issuer   *issuer.Issuer
	Registry *registry.Registry
	Runner   *stepcli.Runner
	Trust    *catrust.Distributor
	Users    *userstore.Store
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders)

	// Health endpoints (always enabled)
	healthHandler := handler.NewHealthHandler(cfg.Version)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	authHandler := handler.NewAuthHandler(cfg.Auth, cfg.Sessions, cfg.SecureCookies)
	certHandler := handler.NewCertHandler(cfg.Issuer, cfg.Registry, cfg.Runner)
	caHandler := handler.NewCAHandler(cfg.Trust)
	userHandler := handler.NewUserHandler(cfg.Users)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints: login, and the root certificate so clients
		// can bootstrap trust before they can authenticate.
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/ca/root", caHandler.Root)

		// Everything else requires a live session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(cfg.Sessions))

			r.Get("/auth/session", authHandler.Session)

			// Certificate bundle operations
			r.Route("/certs", func(r chi.Router) {
				r.Post("/", certHandler.Issue)
				r.Get("/", certHandler.List)
				r.Get("/{directory}", certHandler.Detail)
				r.Get("/{directory}/archive", certHandler.Archive)
				r.Get("/{directory}/files/{name}", certHandler.File)
				r.Delete("/{directory}", certHandler.Delete)
			})

			// CA information and trust material
			r.Get("/ca", caHandler.Info)
			r.Get("/ca/intermediate", caHandler.Intermediate)
			r.Get("/ca/bundle", caHandler.Bundle)

			// Local account management
			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Save)
				r.Delete("/{username}", userHandler.Delete)
			})
		})
	})

	return r
}
