package audit

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultMaxSize is the rotation ceiling when none is configured.
const DefaultMaxSize int64 = 10 * 1024 * 1024

// Writer is the interface for audit log sinks.
//
// Implementations MUST:
//   - Return an error if the write fails (audit fails = operation fails)
//   - Never write sensitive data (passwords, passphrases)
type Writer interface {
	Write(event *Event) error
	Close() error
}

// NopWriter discards all events. Used when audit logging is disabled.
type NopWriter struct{}

var _ Writer = (*NopWriter)(nil)

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }

// FileWriter appends audit events to a text file and rotates it to a
// timestamped backup once it exceeds maxSize bytes.
type FileWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
}

var _ Writer = (*FileWriter)(nil)

// NewFileWriter opens (or creates) the audit log at path.
// A maxSize of zero selects DefaultMaxSize.
func NewFileWriter(path string, maxSize int64) (*FileWriter, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	size := int64(0)
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}

	return &FileWriter{
		file:    file,
		path:    path,
		size:    size,
		maxSize: maxSize,
	}, nil
}

// Write appends one event line, rotating first if the file is full.
func (w *FileWriter) Write(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	if w.size >= w.maxSize {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.file.WriteString(event.Line() + "\n")
	if err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	w.size += int64(n)

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	return nil
}

// rotate renames the current file to a timestamped backup and reopens.
// Caller holds the mutex.
func (w *FileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log for rotation: %w", err)
	}

	backup := fmt.Sprintf("%s.%s.old", w.path, time.Now().Format("2006-01-02_150405"))
	if err := os.Rename(w.path, backup); err != nil {
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to reopen audit log: %w", err)
	}
	w.file = file
	w.size = 0
	return nil
}

// Close flushes and closes the audit log file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			return err
		}
		return w.file.Close()
	}
	return nil
}

// Path returns the file path of the audit log.
func (w *FileWriter) Path() string {
	return w.path
}
