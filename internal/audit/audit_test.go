package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Event Tests
// =============================================================================

func TestU_Event_Line(t *testing.T) {
	event := &Event{
		Time:    time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Level:   LevelInfo,
		Client:  "192.0.2.10",
		User:    "alice",
		Message: "Certificate created successfully",
	}

	line := event.Line()
	want := "[2024-01-15 10:00:00] [INFO] [192.0.2.10] [alice] Certificate created successfully"
	if line != want {
		t.Errorf("Line mismatch:\n got: %s\nwant: %s", line, want)
	}
}

func TestU_Event_LineWithContext(t *testing.T) {
	event := NewEvent(LevelWarning, "192.0.2.10", Anonymous, "Failed login attempt").
		WithContext(map[string]any{"username": "bob"})

	line := event.Line()
	if !strings.Contains(line, "[WARNING] [192.0.2.10] [anonymous] Failed login attempt") {
		t.Errorf("unexpected line: %s", line)
	}
	if !strings.Contains(line, ` | {"username":"bob"}`) {
		t.Errorf("context not appended: %s", line)
	}
}

func TestU_Event_Defaults(t *testing.T) {
	event := NewEvent(LevelInfo, "", "", "something happened")

	if event.Client != ClientCLI {
		t.Errorf("expected client %q, got %q", ClientCLI, event.Client)
	}
	if event.User != Anonymous {
		t.Errorf("expected user %q, got %q", Anonymous, event.User)
	}
}

func TestU_Event_Validate(t *testing.T) {
	event := NewEvent(LevelInfo, "CLI", "admin", "ok")
	if err := event.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	event.Message = ""
	if err := event.Validate(); err == nil {
		t.Error("expected error for empty message")
	}
}

// =============================================================================
// FileWriter Tests
// =============================================================================

func TestU_FileWriter_WriteAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewFileWriter(path, 0)
	if err != nil {
		t.Fatalf("NewFileWriter failed: %v", err)
	}
	defer w.Close()

	for _, msg := range []string{"first", "second"} {
		if err := w.Write(NewEvent(LevelInfo, "CLI", "admin", msg)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[0], "first") || !strings.HasSuffix(lines[1], "second") {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestU_FileWriter_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	// Tiny ceiling so the second write rotates.
	w, err := NewFileWriter(path, 10)
	if err != nil {
		t.Fatalf("NewFileWriter failed: %v", err)
	}
	defer w.Close()

	if err := w.Write(NewEvent(LevelInfo, "CLI", "admin", "fills the file past the ceiling")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Write(NewEvent(LevelInfo, "CLI", "admin", "lands in a fresh file")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}

	var backups int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "app.log.") && strings.HasSuffix(e.Name(), ".old") {
			backups++
		}
	}
	if backups != 1 {
		t.Errorf("expected 1 rotated backup, got %d", backups)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "lands in a fresh file") {
		t.Error("active log missing post-rotation entry")
	}
	if strings.Contains(string(data), "fills the file") {
		t.Error("active log still contains rotated entry")
	}
}

func TestU_FileWriter_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewFileWriter(path, 0)
	if err != nil {
		t.Fatalf("NewFileWriter failed: %v", err)
	}
	defer w.Close()

	if err := w.Write(NewEvent(LevelInfo, "CLI", "admin", "ok")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected permissions 0600, got %o", perm)
	}
}

// =============================================================================
// Global Facade Tests
// =============================================================================

func TestU_Audit_InitFileAndHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := InitFile(path, 0); err != nil {
		t.Fatalf("InitFile failed: %v", err)
	}
	defer func() {
		if err := Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	LogLogin("192.0.2.10", "alice", "local", true)
	LogLogin("192.0.2.10", "mallory", "local", false)
	LogCertIssued("192.0.2.10", "alice", "example.com", "example.com_2024-01-15_100000")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(data)

	if !strings.Contains(text, "[alice] User logged in successfully") {
		t.Error("missing successful login entry")
	}
	// Failed logins are attributed to anonymous with the attempted name in context.
	if !strings.Contains(text, "[anonymous] Failed login attempt") ||
		!strings.Contains(text, `"username":"mallory"`) {
		t.Error("missing failed login entry")
	}
	if !strings.Contains(text, "Certificate created successfully") {
		t.Error("missing issuance entry")
	}
	if strings.Contains(text, "password") {
		t.Error("audit log must never mention passwords")
	}
}

func TestU_Audit_DisabledIsNoop(t *testing.T) {
	Init(nil)
	if err := Log(NewEvent(LevelInfo, "CLI", "admin", "discarded")); err != nil {
		t.Errorf("nop writer returned error: %v", err)
	}
}
