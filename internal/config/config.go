// Package config loads the console configuration from a YAML file and
// environment variables. Environment variables win over file values so a
// container deployment can run without any file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML as either a
// duration string ("30m") or a bare integer number of seconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration: %v", raw)
	}
	return nil
}

// Config holds the full console configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`

	// TLS configuration (optional).
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	// DataDir is the base directory for console state.
	DataDir string `yaml:"data_dir"`

	// CertsDir is where issued certificate bundles live.
	// Defaults to {DataDir}/certificates.
	CertsDir string `yaml:"certs_dir"`

	// PasswordFile is the local credential store.
	// Defaults to {DataDir}/.password.
	PasswordFile string `yaml:"password_file"`

	// BcryptCost is the cost factor for locally stored password hashes.
	BcryptCost int `yaml:"bcrypt_cost"`

	// AuditLog is the audit log file. Defaults to {DataDir}/logs/app.log.
	AuditLog string `yaml:"audit_log"`

	// AuditMaxSize is the rotation ceiling in bytes.
	AuditMaxSize int64 `yaml:"audit_max_size"`

	// SessionTimeout is the idle timeout for authenticated sessions.
	SessionTimeout Duration `yaml:"session_timeout"`

	// Step is the step-ca integration configuration.
	Step StepConfig `yaml:"step"`

	// AD is the Active Directory authentication configuration.
	AD ADConfig `yaml:"active_directory"`

	// HTTP server timeouts.
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// StepConfig configures the external CA agent and TLS toolkit.
type StepConfig struct {
	// Binary is the step CLI executable.
	Binary string `yaml:"binary"`

	// OpenSSLBinary is the TLS toolkit used for PKCS#12 packaging.
	OpenSSLBinary string `yaml:"openssl_binary"`

	// CAConfig is step-ca's ca.json.
	CAConfig string `yaml:"ca_config"`

	// RootCert and IntermediateCert are the CA trust material files.
	// The console only ever reads them.
	RootCert         string `yaml:"root_cert"`
	IntermediateCert string `yaml:"intermediate_cert"`

	// Provisioner is the CA-side identity used to authorize signing.
	Provisioner string `yaml:"provisioner"`

	// DefaultValidityDays is used when an issuance request omits validity.
	DefaultValidityDays int `yaml:"default_validity_days"`

	// Timeout bounds every bridge subprocess call.
	Timeout Duration `yaml:"timeout"`
}

// ADConfig configures directory authentication.
type ADConfig struct {
	Enabled bool `yaml:"enabled"`

	// Server is the directory URL, e.g. "ldap://dc.example.com".
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`

	// Domain is the NetBIOS domain prepended to bare usernames.
	Domain string `yaml:"domain"`

	// BaseDN is the search base for account lookups.
	BaseDN string `yaml:"base_dn"`

	// UseTLS upgrades plain ldap:// connections with StartTLS.
	UseTLS bool `yaml:"use_tls"`

	Timeout Duration `yaml:"timeout"`

	// RequiredGroups restricts access to accounts whose memberOf values
	// contain one of these identifiers (case-insensitive substring).
	RequiredGroups []string `yaml:"required_groups"`
}

// Default returns a Config with the reference defaults.
func Default() *Config {
	return &Config{
		Listen:         ":8080",
		DataDir:        "data",
		BcryptCost:     10,
		AuditMaxSize:   10 * 1024 * 1024,
		SessionTimeout: Duration(30 * time.Minute),
		Step: StepConfig{
			Binary:              "step",
			OpenSSLBinary:       "openssl",
			CAConfig:            "/var/step-ca/config/ca.json",
			RootCert:            "/var/step-ca/certs/root_ca.crt",
			IntermediateCert:    "/var/step-ca/certs/intermediate_ca.crt",
			Provisioner:         "admin",
			DefaultValidityDays: 365,
			Timeout:             Duration(60 * time.Second),
		},
		AD: ADConfig{
			Server:  "ldap://dc.example.com",
			Port:    389,
			Domain:  "EXAMPLE",
			BaseDN:  "DC=example,DC=com",
			Timeout: Duration(10 * time.Second),
		},
		ReadTimeout:     Duration(30 * time.Second),
		WriteTimeout:    Duration(120 * time.Second),
		IdleTimeout:     Duration(120 * time.Second),
		ShutdownTimeout: Duration(10 * time.Second),
	}
}

// Load reads the configuration file at path (if non-empty), applies
// environment overrides, and fills in derived defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment.
func (c *Config) applyEnv() {
	setString(&c.Listen, "STEPCONSOLE_LISTEN")
	setString(&c.DataDir, "STEPCONSOLE_DATA_DIR")
	setString(&c.CertsDir, "STEPCONSOLE_CERTS_DIR")
	setString(&c.PasswordFile, "STEPCONSOLE_PASSWORD_FILE")
	setString(&c.AuditLog, "STEPCONSOLE_AUDIT_LOG")

	if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.SessionTimeout = Duration(time.Duration(secs) * time.Second)
		}
	}

	setString(&c.Step.Binary, "STEP_BINARY")
	setString(&c.Step.CAConfig, "STEP_CA_CONFIG")
	setString(&c.Step.RootCert, "STEP_CA_ROOT_CERT")
	setString(&c.Step.IntermediateCert, "STEP_CA_INTERMEDIATE_CERT")
	setString(&c.Step.Provisioner, "CA_PROVISIONER")
	if v := os.Getenv("DEFAULT_CERT_VALIDITY_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			c.Step.DefaultValidityDays = days
		}
	}

	setBool(&c.AD.Enabled, "AD_ENABLED")
	setString(&c.AD.Server, "AD_SERVER")
	if v := os.Getenv("AD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.AD.Port = port
		}
	}
	setString(&c.AD.Domain, "AD_DOMAIN")
	setString(&c.AD.BaseDN, "AD_BASE_DN")
	setBool(&c.AD.UseTLS, "AD_USE_TLS")
	if v := os.Getenv("AD_REQUIRED_GROUPS"); v != "" {
		var groups []string
		for _, g := range strings.Split(v, ",") {
			if g = strings.TrimSpace(g); g != "" {
				groups = append(groups, g)
			}
		}
		c.AD.RequiredGroups = groups
	}
}

// applyDerived fills paths derived from DataDir when not set explicitly.
func (c *Config) applyDerived() {
	if c.CertsDir == "" {
		c.CertsDir = filepath.Join(c.DataDir, "certificates")
	}
	if c.PasswordFile == "" {
		c.PasswordFile = filepath.Join(c.DataDir, ".password")
	}
	if c.AuditLog == "" {
		c.AuditLog = filepath.Join(c.DataDir, "logs", "app.log")
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout must be positive")
	}
	if c.Step.Timeout <= 0 {
		return fmt.Errorf("step.timeout must be positive")
	}
	if c.Step.Provisioner == "" {
		return fmt.Errorf("step.provisioner must not be empty")
	}
	if c.Step.DefaultValidityDays < 1 || c.Step.DefaultValidityDays > 3650 {
		return fmt.Errorf("step.default_validity_days must be between 1 and 3650")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key must be set together")
	}
	if c.AD.Enabled && c.AD.Server == "" {
		return fmt.Errorf("active_directory.server is required when AD is enabled")
	}
	return nil
}

// EnsureDirs creates the data, certificate and log directories.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.DataDir, c.CertsDir, filepath.Dir(c.AuditLog)}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
