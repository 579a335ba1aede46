package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner abstracts subprocess execution so the probe adapters can be
// unit-tested without a hardware tool on the host.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Result carries the captured output of a finished subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// ExitError reports a subprocess that started but exited non-zero.
// Any other error from Runner.Run means the process never ran.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, msg)
}

// OSRunner executes commands on the host via os/exec. The child is placed in
// its own process group so a timed-out probe is killed together with any
// helper it spawned (sudo, for instance).
type OSRunner struct{}

func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

func (r *OSRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%s: %w", name, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return res, err
}
