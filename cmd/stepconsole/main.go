// Command stepconsole is the web console for a step-ca certificate authority.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mbressan/step-console/internal/audit"
	"github.com/mbressan/step-console/internal/config"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath string
	envPath    string

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stepconsole",
	Short: "Web console for a step-ca certificate authority",
	Long: `stepconsole is a web console for operating a step-ca certificate
authority: it issues certificate bundles through the step CLI, manages
their lifecycle, distributes the CA trust material, and keeps an audit
trail of everything operators do.

Operators sign in with a local account or through Active Directory.

Examples:
  # Start the console
  stepconsole serve --config console.yaml

  # Manage local accounts
  stepconsole user add alice
  stepconsole user list
  stepconsole user del alice`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env file is optional; environment variables win either way.
		if envPath != "" {
			if err := godotenv.Load(envPath); err != nil {
				return fmt.Errorf("failed to load env file: %w", err)
			}
		} else {
			_ = godotenv.Load()
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.EnsureDirs(); err != nil {
			return err
		}

		if err := audit.InitFile(cfg.AuditLog, cfg.AuditMaxSize); err != nil {
			return fmt.Errorf("failed to initialize audit log: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", "",
		"Path to a .env file (default: ./.env if present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
}
