package main

import (
	"github.com/spf13/cobra"

	"github.com/mbressan/step-console/internal/api/router"
	"github.com/mbressan/step-console/internal/api/server"
	"github.com/mbressan/step-console/internal/authn"
	"github.com/mbressan/step-console/internal/catrust"
	"github.com/mbressan/step-console/internal/issuer"
	"github.com/mbressan/step-console/internal/registry"
	"github.com/mbressan/step-console/internal/session"
	"github.com/mbressan/step-console/internal/stepcli"
	"github.com/mbressan/step-console/internal/userstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console HTTP server",
	Long: `Start the console HTTP server.

The server exposes a REST API under /api/v1: authentication, certificate
bundle issuance and lifecycle, CA trust material downloads, and local
account management. All state lives on the filesystem; a restart only
logs operators out.

Examples:
  # Start with a configuration file
  stepconsole serve --config console.yaml

  # Configuration from the environment only
  STEPCONSOLE_LISTEN=:8443 stepconsole serve`,
	RunE: runServe,
}

var serveListen string

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"Listen address, overrides the configured one")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	store := userstore.New(cfg.PasswordFile, cfg.BcryptCost)

	var directory authn.Strategy
	if cfg.AD.Enabled {
		directory = authn.NewDirectoryStrategy(cfg.AD)
	}
	chain := authn.NewChain(directory, authn.NewLocalStrategy(store))

	sessions := session.NewManager(cfg.SessionTimeout.Std())
	runner := stepcli.NewRunner(cfg.Step.Binary, cfg.Step.OpenSSLBinary, cfg.Step.Timeout.Std())
	trust := catrust.New(cfg.Step.RootCert, cfg.Step.IntermediateCert, cfg.Step.CAConfig)
	iss := issuer.New(cfg.CertsDir, cfg.Step.Provisioner, cfg.Step.DefaultValidityDays, runner, trust)
	reg := registry.New(cfg.CertsDir)

	handler := router.New(&router.Config{
		Version:       version,
		SecureCookies: cfg.TLSCert != "",
		Auth:          chain,
		Sessions:      sessions,
		Issuer:        iss,
		Registry:      reg,
		Runner:        runner,
		Trust:         trust,
		Users:         store,
	})

	srv := server.New(&server.Config{
		Addr:            cfg.Listen,
		TLSCert:         cfg.TLSCert,
		TLSKey:          cfg.TLSKey,
		ReadTimeout:     cfg.ReadTimeout.Std(),
		WriteTimeout:    cfg.WriteTimeout.Std(),
		IdleTimeout:     cfg.IdleTimeout.Std(),
		ShutdownTimeout: cfg.ShutdownTimeout.Std(),
	}, version, handler)

	return srv.Start()
}
