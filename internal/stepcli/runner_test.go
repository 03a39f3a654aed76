package stepcli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// writeScript drops an executable shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a POSIX shell")
	}
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

// =============================================================================
// Runner Tests
// =============================================================================

func TestU_Runner_Success(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "step", `echo "line one"; echo "line two"`)
	r := NewRunner(bin, "", time.Minute)

	res, err := r.Run(context.Background(), "ca", "health")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if len(res.Output) != 2 || res.Output[0] != "line one" || res.Output[1] != "line two" {
		t.Errorf("unexpected output: %v", res.Output)
	}
}

func TestU_Runner_NonZeroExit(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "step", `echo "bad provisioner" >&2; exit 3`)
	r := NewRunner(bin, "", time.Minute)

	_, err := r.Run(context.Background(), "ca", "certificate")
	if err == nil {
		t.Fatal("expected an error")
	}

	var bridgeErr *BridgeError
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("expected BridgeError, got %T", err)
	}
	if bridgeErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", bridgeErr.ExitCode)
	}
	if bridgeErr.OutputText() != "bad provisioner" {
		t.Errorf("unexpected output: %q", bridgeErr.OutputText())
	}
}

func TestU_Runner_Timeout(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "step", `sleep 5`)
	r := NewRunner(bin, "", 100*time.Millisecond)

	_, err := r.Run(context.Background(), "ca", "certificate")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestU_Runner_MissingBinary(t *testing.T) {
	r := NewRunner(filepath.Join(t.TempDir(), "does-not-exist"), "", time.Minute)

	_, err := r.Run(context.Background(), "version")
	if err == nil {
		t.Fatal("expected an error for a missing binary")
	}
	var bridgeErr *BridgeError
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("expected BridgeError, got %T", err)
	}
}

func TestU_Runner_RunToolUsesSecondBinary(t *testing.T) {
	dir := t.TempDir()
	step := writeScript(t, dir, "step", `echo step`)
	openssl := writeScript(t, dir, "openssl", `echo openssl`)
	r := NewRunner(step, openssl, time.Minute)

	res, err := r.RunTool(context.Background(), "version")
	if err != nil {
		t.Fatalf("RunTool failed: %v", err)
	}
	if len(res.Output) != 1 || res.Output[0] != "openssl" {
		t.Errorf("unexpected output: %v", res.Output)
	}
}

func TestU_Runner_InspectCertificate(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "step",
		`echo '{"subject":{"common_name":"example.com"},"validity":{"end":"2025-01-15T10:00:00Z"}}'`)
	r := NewRunner(bin, "", time.Minute)

	details, err := r.InspectCertificate(context.Background(), "cert.crt")
	if err != nil {
		t.Fatalf("InspectCertificate failed: %v", err)
	}
	if _, ok := details["subject"]; !ok {
		t.Errorf("expected subject key, got %v", details)
	}
}

// =============================================================================
// Password File Tests
// =============================================================================

func TestU_WritePasswordFile(t *testing.T) {
	dir := t.TempDir()

	path, cleanup, err := WritePasswordFile(dir, "the-provisioner-secret")
	if err != nil {
		t.Fatalf("WritePasswordFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "the-provisioner-secret" {
		t.Errorf("unexpected content: %q", string(data))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected permissions 0600, got %o", perm)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup did not remove the password file")
	}
}
