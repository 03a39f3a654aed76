// Package stepcli wraps the external CA agent (the step CLI) and the TLS
// toolkit (openssl) behind a narrow subprocess interface.
//
// Nothing else in the console constructs command lines. Arguments are
// passed as an argv array, never through a shell, so user-controlled
// values cannot break out of their argument position. Secrets travel via
// owner-only temporary files, never on the command line.
package stepcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout reports that the external agent exceeded the bridge deadline.
var ErrTimeout = errors.New("step command timed out")

// BridgeError reports a failed agent or toolkit invocation.
type BridgeError struct {
	Command  string   // the full argv, space-joined; never contains secrets
	ExitCode int      // -1 when the process did not run or was killed
	Output   []string // combined stdout+stderr lines
	Err      error    // underlying cause, e.g. ErrTimeout
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// OutputText returns the captured output as one string.
func (e *BridgeError) OutputText() string { return strings.Join(e.Output, "\n") }

// Result is the outcome of a successful invocation.
type Result struct {
	Output   []string
	ExitCode int
}

// Runner invokes the step CLI and the TLS toolkit with a bounded timeout.
type Runner struct {
	stepBin    string
	opensslBin string
	timeout    time.Duration
}

// NewRunner creates a Runner. Empty binary names select "step" and
// "openssl" from PATH; a zero timeout selects one minute.
func NewRunner(stepBin, opensslBin string, timeout time.Duration) *Runner {
	if stepBin == "" {
		stepBin = "step"
	}
	if opensslBin == "" {
		opensslBin = "openssl"
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Runner{stepBin: stepBin, opensslBin: opensslBin, timeout: timeout}
}

// Run invokes the CA agent with the given arguments. A failure carries
// the command and captured output in the returned BridgeError; callers
// audit it with the operator identity they hold.
func (r *Runner) Run(ctx context.Context, args ...string) (*Result, error) {
	return r.exec(ctx, r.stepBin, args)
}

// RunTool invokes the TLS toolkit with the given arguments.
func (r *Runner) RunTool(ctx context.Context, args ...string) (*Result, error) {
	return r.exec(ctx, r.opensslBin, args)
}

func (r *Runner) exec(ctx context.Context, bin string, args []string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	raw, err := cmd.CombinedOutput()
	lines := splitLines(raw)
	command := bin + " " + strings.Join(args, " ")

	if err != nil {
		bridgeErr := &BridgeError{
			Command:  command,
			ExitCode: -1,
			Output:   lines,
		}
		if ctx.Err() == context.DeadlineExceeded {
			bridgeErr.Err = ErrTimeout
		} else {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				bridgeErr.ExitCode = exitErr.ExitCode()
			} else {
				bridgeErr.Err = err
			}
		}

		return nil, bridgeErr
	}

	return &Result{Output: lines, ExitCode: 0}, nil
}

// InspectCertificate parses a certificate file through the CA agent's
// inspector and returns the decoded JSON document.
func (r *Runner) InspectCertificate(ctx context.Context, certFile string) (map[string]any, error) {
	res, err := r.Run(ctx, "certificate", "inspect", certFile, "--format", "json")
	if err != nil {
		return nil, err
	}

	var details map[string]any
	if err := json.Unmarshal([]byte(strings.Join(res.Output, "\n")), &details); err != nil {
		return nil, fmt.Errorf("failed to parse certificate details: %w", err)
	}
	return details, nil
}

// splitLines splits combined output into lines, dropping a trailing blank.
func splitLines(raw []byte) []string {
	text := strings.TrimRight(string(raw), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
