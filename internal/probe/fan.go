package probe

import (
	"context"
	"errors"
	"strings"
	"time"
)

// CommandError carries the diagnostic text of a fan-mode change that ran but failed.
type CommandError struct {
	Path   string
	Stderr string
	Err    error
}

// Error returns stderr folded onto one line, since it ends up in a single
// datagram reply.
func (e *CommandError) Error() string {
	if msg := strings.Join(strings.Fields(e.Stderr), " "); msg != "" {
		return msg
	}
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error { return e.Err }

// FanControl switches the fan mode through the probe executable. The
// executable is located on every call because it may be installed while the
// server is running.
type FanControl struct {
	Candidates []string
	Runner     Runner
	Timeout    time.Duration
	// Prefix is prepended to the command line; nil selects sudo when the
	// server is not already privileged.
	Prefix []string
}

// NewFanControl returns a FanControl searching the given candidate paths in order.
func NewFanControl(candidates []string, runner Runner) *FanControl {
	if runner == nil {
		runner = NewOSRunner()
	}
	return &FanControl{
		Candidates: candidates,
		Runner:     runner,
		Timeout:    DefaultFanTimeout,
		Prefix:     elevationPrefix(),
	}
}

// SetFanMode runs "<tool> -s <mode>" on the first existing candidate. A
// candidate that exists but cannot be started is skipped. ErrToolNotFound is
// returned when nothing could be run.
func (f *FanControl) SetFanMode(ctx context.Context, mode string) (string, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	for _, path := range f.Candidates {
		if path == "" || !fileExists(path) {
			continue
		}
		name, args := f.commandLine(path, mode)
		res, err := f.Runner.Run(ctx, name, args...)
		if err == nil {
			return string(res.Stdout), nil
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return "", &CommandError{Path: path, Stderr: exitErr.Stderr, Err: err}
		}
		if ctx.Err() != nil {
			return "", &CommandError{Path: path, Err: err}
		}
	}
	return "", ErrToolNotFound
}

func (f *FanControl) commandLine(path, mode string) (string, []string) {
	args := append([]string{}, f.Prefix...)
	args = append(args, path, setModeFlag, mode)
	return args[0], args[1:]
}
