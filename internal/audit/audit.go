package audit

import (
	"fmt"
	"sync"
)

var (
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex
)

// Init installs the global audit writer. A nil writer disables auditing.
func Init(w Writer) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		return
	}
	globalWriter = w
}

// InitFile installs a file-backed global writer.
// Convenience for the common case; an empty path disables auditing.
func InitFile(path string, maxSize int64) error {
	if path == "" {
		Init(nil)
		return nil
	}

	w, err := NewFileWriter(path, maxSize)
	if err != nil {
		return err
	}
	Init(w)
	return nil
}

// Close closes the global audit writer.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter = NopWriter{}
	return err
}

// Log writes an event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	if err := w.Write(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// LogLogin records an authentication attempt. The method is "local" or
// "active_directory"; the password is never logged.
func LogLogin(client, username, method string, success bool) {
	if success {
		_ = Log(NewEvent(LevelInfo, client, username, "User logged in successfully").
			WithContext(map[string]any{"username": username, "auth_method": method}))
		return
	}
	_ = Log(NewEvent(LevelWarning, client, Anonymous, "Failed login attempt").
		WithContext(map[string]any{"username": username, "auth_method": method}))
}

// LogLogout records an explicit logout.
func LogLogout(client, username string) {
	_ = Log(NewEvent(LevelInfo, client, username, "User logged out"))
}

// LogSessionExpired records an idle-timeout session termination.
func LogSessionExpired(client, username string) {
	_ = Log(NewEvent(LevelInfo, client, username, "Session expired").
		WithContext(map[string]any{"username": username}))
}

// LogCertIssued records a successful certificate issuance.
func LogCertIssued(client, username, commonName, directory string) {
	_ = Log(NewEvent(LevelInfo, client, username, "Certificate created successfully").
		WithContext(map[string]any{"common_name": commonName, "directory": directory}))
}

// LogCertIssueFailed records a failed certificate issuance.
func LogCertIssueFailed(client, username, commonName, reason string) {
	_ = Log(NewEvent(LevelError, client, username, "Certificate creation failed").
		WithContext(map[string]any{"common_name": commonName, "reason": reason}))
}

// LogCertDeleted records a bundle deletion.
func LogCertDeleted(client, username, directory string) {
	_ = Log(NewEvent(LevelInfo, client, username, "Certificate deleted").
		WithContext(map[string]any{"directory": directory}))
}

// LogCertDownloaded records a bundle archive download.
func LogCertDownloaded(client, username, directory string) {
	_ = Log(NewEvent(LevelInfo, client, username, "Certificate downloaded").
		WithContext(map[string]any{"directory": directory}))
}

// LogCADownloaded records a CA trust material download.
func LogCADownloaded(client, username, fileType, filename string) {
	_ = Log(NewEvent(LevelInfo, client, username, "CA file downloaded").
		WithContext(map[string]any{"file_type": fileType, "filename": filename}))
}

// LogUserSaved records a credential store upsert.
func LogUserSaved(client, actor, username string) {
	_ = Log(NewEvent(LevelInfo, client, actor, "User added/updated").
		WithContext(map[string]any{"username": username}))
}

// LogUserDeleted records a credential store removal.
func LogUserDeleted(client, actor, username string) {
	_ = Log(NewEvent(LevelInfo, client, actor, "User deleted").
		WithContext(map[string]any{"username": username}))
}

// LogBridgeFailed records a failed CA agent invocation on behalf of the
// given operator. The command must not contain password material; the
// bridge passes secrets via files.
func LogBridgeFailed(client, username, command string, exitCode int, output string) {
	_ = Log(NewEvent(LevelError, client, username, "Step command failed").
		WithContext(map[string]any{
			"command":     command,
			"return_code": exitCode,
			"output":      output,
		}))
}
