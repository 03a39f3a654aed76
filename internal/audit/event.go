// Package audit provides the append-only security event log for the console.
//
// Audit entries are separate from request logs and record who did what:
// logins, issuances, deletions, credential changes. One line per event:
//
//	[2024-01-15 10:00:00] [INFO] [192.0.2.10] [alice] Certificate created | {"common_name":"example.com"}
//
// The client field is "CLI" for command-line invocations and the user field
// is "anonymous" before authentication. Secrets (passwords, passphrases)
// must never appear in an event.
package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Level classifies the severity of an audit event.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// ClientCLI is the client field for command-line invocations.
const ClientCLI = "CLI"

// Anonymous is the user field before authentication.
const Anonymous = "anonymous"

// timeFormat is the timestamp layout used in log lines and metadata.
const timeFormat = "2006-01-02 15:04:05"

// Event is a single audit log entry.
type Event struct {
	Time    time.Time
	Level   Level
	Client  string // remote address, or ClientCLI
	User    string // authenticated username, or Anonymous
	Message string
	Context map[string]any
}

// NewEvent creates an event with the current time and the given fields.
// Empty client and user default to ClientCLI and Anonymous.
func NewEvent(level Level, client, user, message string) *Event {
	if client == "" {
		client = ClientCLI
	}
	if user == "" {
		user = Anonymous
	}
	return &Event{
		Time:    time.Now(),
		Level:   level,
		Client:  client,
		User:    user,
		Message: message,
	}
}

// WithContext attaches structured context to the event.
func (e *Event) WithContext(ctx map[string]any) *Event {
	e.Context = ctx
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	if e.Level == "" {
		return fmt.Errorf("level is required")
	}
	if e.Message == "" {
		return fmt.Errorf("message is required")
	}
	if e.Time.IsZero() {
		return fmt.Errorf("time is required")
	}
	return nil
}

// Line renders the event in the on-disk line format, without a trailing
// newline. The context is appended as compact JSON when present.
func (e *Event) Line() string {
	line := fmt.Sprintf("[%s] [%s] [%s] [%s] %s",
		e.Time.Format(timeFormat), e.Level, e.Client, e.User, e.Message)

	if len(e.Context) > 0 {
		if ctx, err := json.Marshal(e.Context); err == nil {
			line += " | " + string(ctx)
		}
	}
	return line
}
