package stepcli

import (
	"fmt"
	"os"
)

// WritePasswordFile stores a secret in an owner-only temporary file so it
// can be handed to the CA agent without ever appearing on a command line.
//
// The returned cleanup must run on every exit path; it removes the file.
// An empty dir selects the system temporary directory.
func WritePasswordFile(dir, password string) (path string, cleanup func(), err error) {
	file, err := os.CreateTemp(dir, "step_pass_")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create password file: %w", err)
	}
	path = file.Name()
	cleanup = func() { _ = os.Remove(path) }

	if err := file.Chmod(0o600); err != nil {
		_ = file.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to restrict password file: %w", err)
	}
	if _, err := file.WriteString(password); err != nil {
		_ = file.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write password file: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close password file: %w", err)
	}

	return path, cleanup, nil
}
