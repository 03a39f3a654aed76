package catrust

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// =============================================================================
// Distributor Tests
// =============================================================================

func TestU_Distributor_RootAndIntermediate(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "root_ca.crt", "ROOT PEM\n")
	intermediate := writeFile(t, dir, "intermediate_ca.crt", "INTERMEDIATE PEM\n")

	d := New(root, intermediate, "")

	data, err := d.Root()
	if err != nil {
		t.Fatalf("Root failed: %v", err)
	}
	if string(data) != "ROOT PEM\n" {
		t.Errorf("unexpected root: %q", data)
	}

	data, err = d.Intermediate()
	if err != nil {
		t.Fatalf("Intermediate failed: %v", err)
	}
	if string(data) != "INTERMEDIATE PEM\n" {
		t.Errorf("unexpected intermediate: %q", data)
	}
}

func TestU_Distributor_MissingFileIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	d := New(filepath.Join(dir, "absent.crt"), "", "")

	if _, err := d.Root(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for a missing file, got %v", err)
	}
	if _, err := d.Intermediate(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for an empty path, got %v", err)
	}
}

func TestU_Distributor_BundleOrder(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "root_ca.crt", "ROOT PEM")
	intermediate := writeFile(t, dir, "intermediate_ca.crt", "INTERMEDIATE PEM")

	d := New(root, intermediate, "")

	bundle, err := d.Bundle()
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}

	text := string(bundle)
	intPos := strings.Index(text, "INTERMEDIATE PEM")
	rootPos := strings.Index(text, "ROOT PEM")
	if intPos < 0 || rootPos < 0 || intPos > rootPos {
		t.Errorf("bundle out of order:\n%s", text)
	}
}

func TestU_Distributor_BundleNeedsBothParts(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "root_ca.crt", "ROOT PEM")

	d := New(root, filepath.Join(dir, "absent.crt"), "")
	if _, err := d.Bundle(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

// =============================================================================
// Info Tests
// =============================================================================

func TestU_Distributor_Info(t *testing.T) {
	dir := t.TempDir()
	caJSON := `{
		"address": ":9000",
		"dnsNames": ["ca.example.com", "ca.internal"],
		"authority": {
			"name": "Example CA",
			"provisioners": [{"name": "admin", "type": "JWK"}, {"name": "acme", "type": "ACME"}]
		}
	}`
	cfg := writeFile(t, dir, "ca.json", caJSON)

	d := New("", "", cfg)
	info, err := d.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}

	if info.Name != "Example CA" {
		t.Errorf("name = %q", info.Name)
	}
	if info.Address != ":9000" {
		t.Errorf("address = %q", info.Address)
	}
	if len(info.DNSNames) != 2 {
		t.Errorf("dns names = %v", info.DNSNames)
	}
	if info.Provisioners != 2 {
		t.Errorf("provisioners = %d", info.Provisioners)
	}
}

func TestU_Distributor_InfoDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "ca.json", `{}`)

	d := New("", "", cfg)
	info, err := d.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Name != "Unknown" || info.Address != "Unknown" {
		t.Errorf("expected Unknown placeholders, got %+v", info)
	}
}

func TestU_Distributor_InfoBadJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "ca.json", `{not json`)

	d := New("", "", cfg)
	if _, err := d.Info(); err == nil {
		t.Error("expected an error for malformed ca.json")
	}
}
