// Package issuer drives certificate issuance through the CA agent and
// assembles the resulting bundle directory: key pair, chain, PKCS#12
// archive, manifest and operator notes.
package issuer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mbressan/step-console/internal/audit"
	"github.com/mbressan/step-console/internal/catrust"
	"github.com/mbressan/step-console/internal/registry"
	"github.com/mbressan/step-console/internal/stepcli"
)

// Bundle file names.
const (
	CertFile     = "cert.crt"
	KeyFile      = "cert.key"
	ChainFile    = "chain.pem"
	PKCS12File   = "cert.p12"
	P12PassFile  = "p12_password.txt"
	ReadmeFile   = "README.txt"
	dirTimestamp = "2006-01-02_150405"
)

// Output formats for issued bundles. PEM artifacts are always produced;
// the PKCS#12 format additionally packages them into cert.p12.
const (
	FormatPEM    = "pem"
	FormatPKCS12 = "pkcs12"
)

// Request describes one issuance.
type Request struct {
	CommonName   string
	SubjectNames []string // additional SANs; the common name is always included
	ValidityDays int      // zero selects the configured default
	CAPassword   string   // provisioner password, handed over via a temp file
	Format       string   // FormatPEM or FormatPKCS12; empty selects PKCS#12
}

// Bundle is the result of a successful issuance.
type Bundle struct {
	Directory string // directory name under the bundles root
	Path      string // absolute directory path
	Files     []string
	Metadata  *registry.Metadata
}

// Issuer issues certificates via the CA agent.
type Issuer struct {
	certsDir        string
	provisioner     string
	defaultValidity int
	runner          *stepcli.Runner
	trust           *catrust.Distributor
	now             func() time.Time
}

// New creates an Issuer writing bundles under certsDir.
func New(certsDir, provisioner string, defaultValidity int, runner *stepcli.Runner, trust *catrust.Distributor) *Issuer {
	if defaultValidity <= 0 {
		defaultValidity = 365
	}
	return &Issuer{
		certsDir:        certsDir,
		provisioner:     provisioner,
		defaultValidity: defaultValidity,
		runner:          runner,
		trust:           trust,
		now:             time.Now,
	}
}

// Issue validates the request, invokes the CA agent, and assembles the
// bundle directory. client and requestedBy identify the operator for the
// audit trail. On agent failure the partial directory is left on disk for
// inspection; without a manifest it stays invisible to the catalog.
func (i *Issuer) Issue(ctx context.Context, client, requestedBy string, req Request) (*Bundle, error) {
	cn := strings.TrimSpace(req.CommonName)
	if cn == "" {
		return nil, &ValidationError{Field: "common_name", Message: "common name is required"}
	}
	if req.CAPassword == "" {
		return nil, &ValidationError{Field: "ca_password", Message: "CA password is required"}
	}

	format := req.Format
	if format == "" {
		format = FormatPKCS12
	}
	if format != FormatPEM && format != FormatPKCS12 {
		return nil, &ValidationError{Field: "format", Message: "format must be pem or pkcs12", Values: []string{req.Format}}
	}

	days := req.ValidityDays
	if days == 0 {
		days = i.defaultValidity
	}
	if err := ValidateValidity(days); err != nil {
		return nil, err
	}

	sans := normalizeSubjectNames(cn, req.SubjectNames)
	if err := ValidateSubjectNames(sans); err != nil {
		return nil, err
	}

	createdAt := i.now()
	dirName := SanitizeFileName(cn) + "_" + createdAt.Format(dirTimestamp)
	bundleDir := filepath.Join(i.certsDir, dirName)
	if err := os.MkdirAll(bundleDir, 0o755); err != nil {
		return nil, &registry.StorageError{Op: "mkdir", Path: bundleDir, Err: err}
	}

	if err := i.runAgent(ctx, client, requestedBy, bundleDir, cn, sans, days, req.CAPassword); err != nil {
		audit.LogCertIssueFailed(client, requestedBy, cn, err.Error())
		return nil, err
	}

	chain := i.assembleChain(bundleDir)
	if format == FormatPKCS12 {
		i.exportPKCS12(ctx, client, requestedBy, bundleDir, chain)
	}

	meta := &registry.Metadata{
		CommonName:   cn,
		DNSNames:     sans,
		CreatedAt:    registry.Timestamp{Time: createdAt},
		CreatedBy:    requestedBy,
		ValidityDays: days,
		ExpiresAt:    registry.Timestamp{Time: createdAt.Add(time.Duration(days) * 24 * time.Hour)},
	}
	if err := registry.WriteMetadata(bundleDir, meta); err != nil {
		audit.LogCertIssueFailed(client, requestedBy, cn, err.Error())
		return nil, err
	}
	writeReadme(bundleDir, meta)

	audit.LogCertIssued(client, requestedBy, cn, dirName)

	return &Bundle{
		Directory: dirName,
		Path:      bundleDir,
		Files:     listFiles(bundleDir),
		Metadata:  meta,
	}, nil
}

// runAgent invokes the CA agent. The provisioner password goes through an
// owner-only temp file so it never appears in process listings.
func (i *Issuer) runAgent(ctx context.Context, client, requestedBy, bundleDir, cn string, sans []string, days int, caPassword string) error {
	passFile, cleanup, err := stepcli.WritePasswordFile("", caPassword)
	if err != nil {
		return err
	}
	defer cleanup()

	args := []string{
		"ca", "certificate", cn,
		filepath.Join(bundleDir, CertFile),
		filepath.Join(bundleDir, KeyFile),
		"--provisioner", i.provisioner,
		"--provisioner-password-file", passFile,
		"--not-after", fmt.Sprintf("%dh", days*24),
		"--force",
	}
	for _, san := range sans {
		args = append(args, "--san", san)
	}

	if _, err := i.runner.Run(ctx, args...); err != nil {
		auditBridgeFailure(client, requestedBy, err)
		return err
	}
	return nil
}

// auditBridgeFailure records a failed agent or toolkit invocation under
// the operator who triggered it.
func auditBridgeFailure(client, requestedBy string, err error) {
	var bridgeErr *stepcli.BridgeError
	if errors.As(err, &bridgeErr) {
		audit.LogBridgeFailed(client, requestedBy, bridgeErr.Command, bridgeErr.ExitCode, bridgeErr.OutputText())
	}
}

// assembleChain writes chain.pem as leaf, intermediate, root. Missing
// trust material is skipped, so a bare leaf still yields a chain file.
func (i *Issuer) assembleChain(bundleDir string) []byte {
	var parts [][]byte

	if leaf, err := os.ReadFile(filepath.Join(bundleDir, CertFile)); err == nil {
		parts = append(parts, leaf)
	}
	if intermediate, err := i.trust.Intermediate(); err == nil {
		parts = append(parts, intermediate)
	}
	if root, err := i.trust.Root(); err == nil {
		parts = append(parts, root)
	}

	for idx := range parts {
		parts[idx] = append([]byte(strings.TrimRight(string(parts[idx]), "\n")), '\n')
	}
	chain := joinParts(parts)
	_ = os.WriteFile(filepath.Join(bundleDir, ChainFile), chain, 0o644)
	return chain
}

// exportPKCS12 builds cert.p12 with a random passphrase stored alongside
// it. The TLS toolkit may be absent; a failed export leaves the rest of
// the bundle usable.
func (i *Issuer) exportPKCS12(ctx context.Context, client, requestedBy, bundleDir string, chain []byte) {
	passphrase := randomPassphrase()

	passFile, cleanup, err := stepcli.WritePasswordFile("", passphrase)
	if err != nil {
		return
	}
	defer cleanup()

	args := []string{
		"pkcs12", "-export",
		"-out", filepath.Join(bundleDir, PKCS12File),
		"-inkey", filepath.Join(bundleDir, KeyFile),
		"-in", filepath.Join(bundleDir, CertFile),
		"-passout", "file:" + passFile,
	}
	if len(chain) > 0 {
		args = append(args, "-certfile", filepath.Join(bundleDir, ChainFile))
	}

	if _, err := i.runner.RunTool(ctx, args...); err != nil {
		auditBridgeFailure(client, requestedBy, err)
		return
	}
	_ = os.WriteFile(filepath.Join(bundleDir, P12PassFile), []byte(passphrase+"\n"), 0o600)
}

// normalizeSubjectNames puts the common name first and drops duplicates
// and blanks, preserving the order names were entered. SANs are
// lowercased; DNS matching is case-insensitive. The common name itself
// keeps its case in the subject and the manifest.
func normalizeSubjectNames(cn string, extra []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(extra)+1)
	for _, name := range append([]string{cn}, extra...) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// randomPassphrase returns 16 hex characters from the system CSPRNG.
func randomPassphrase() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}

func joinParts(parts [][]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func listFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

// writeReadme drops a plain-text summary for operators browsing the
// bundle directory outside the console.
func writeReadme(dir string, meta *registry.Metadata) {
	var b strings.Builder
	fmt.Fprintf(&b, "Certificate bundle for %s\n", meta.CommonName)
	fmt.Fprintf(&b, "Created: %s by %s\n", meta.CreatedAt.Format(registry.TimeFormat), meta.CreatedBy)
	fmt.Fprintf(&b, "Expires: %s (%d days)\n", meta.ExpiresAt.Format(registry.TimeFormat), meta.ValidityDays)
	fmt.Fprintf(&b, "Subject names: %s\n", strings.Join(meta.DNSNames, ", "))
	b.WriteString("\nFiles:\n")
	b.WriteString("  cert.crt          leaf certificate (PEM)\n")
	b.WriteString("  cert.key          private key (PEM, keep secret)\n")
	b.WriteString("  chain.pem         leaf + intermediate + root chain\n")
	b.WriteString("  cert.p12          PKCS#12 archive of key and chain\n")
	b.WriteString("  p12_password.txt  passphrase for cert.p12\n")
	b.WriteString("  info.json         bundle manifest\n")
	_ = os.WriteFile(filepath.Join(dir, ReadmeFile), []byte(b.String()), 0o644)
}
