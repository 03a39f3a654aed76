package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Server represents the console HTTP server.
type Server struct {
	cfg     *Config
	version string
	handler http.Handler
}

// New creates a new Server.
func New(cfg *Config, version string, handler http.Handler) *Server {
	cfg.withDefaults()
	return &Server{
		cfg:     cfg,
		version: version,
		handler: handler,
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.printStartupInfo()

	errChan := make(chan error, 1)
	go func() {
		if s.cfg.TLSEnabled() {
			errChan <- srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			errChan <- srv.ListenAndServe()
		}
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		log.Println("Server stopped gracefully")
	}

	return nil
}

// printStartupInfo prints server startup information.
func (s *Server) printStartupInfo() {
	scheme := "http"
	if s.cfg.TLSEnabled() {
		scheme = "https"
	}

	fmt.Println()
	fmt.Println("Step Console")
	fmt.Println("============")
	fmt.Printf("  Version:  %s\n", s.version)
	fmt.Printf("  Address:  %s://%s\n", scheme, s.cfg.Addr)
	if s.cfg.TLSEnabled() {
		fmt.Println("  TLS:      enabled")
	}
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health           - Health check")
	fmt.Println("  GET  /ready            - Readiness check")
	fmt.Println("  *    /api/v1/*         - REST API")
	fmt.Println()
	fmt.Println("Use Ctrl+C to stop")
	fmt.Println()
}
