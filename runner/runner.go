package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a command when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// ErrTimeout indicates the command was killed because its deadline passed.
var ErrTimeout = errors.New("command timed out")

// ErrNotInstalled indicates the executable could not be found in PATH.
var ErrNotInstalled = errors.New("command not found")

// Output holds what a finished command wrote.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr joined, trimmed of surrounding space.
func (o Output) Combined() string {
	return strings.TrimSpace(strings.TrimSpace(o.Stdout) + "\n" + strings.TrimSpace(o.Stderr))
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	cmd := strings.TrimSpace(e.Name + " " + strings.Join(e.Args, " "))
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return fmt.Sprintf("%s: exit status %d: %s", cmd, e.ExitCode, msg)
	}
	return fmt.Sprintf("%s: exit status %d", cmd, e.ExitCode)
}

// CommandRunner executes external commands.
type CommandRunner interface {
	// Run executes name with args in dir ("" for the current directory).
	// The Output is populated whenever the process started, including
	// when the returned error is an *ExitError.
	Run(ctx context.Context, dir, name string, args ...string) (Output, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	timeout time.Duration
	env     []string
}

// ExecOption configures an ExecRunner.
type ExecOption func(*ExecRunner)

// WithTimeout sets the deadline applied when the context has none.
func WithTimeout(d time.Duration) ExecOption {
	return func(r *ExecRunner) {
		r.timeout = d
	}
}

// WithEnv appends environment variables to every command.
func WithEnv(env ...string) ExecOption {
	return func(r *ExecRunner) {
		r.env = append(r.env, env...)
	}
}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner(opts ...ExecOption) *ExecRunner {
	r := &ExecRunner{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run implements CommandRunner.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Output, error) {
	if _, ok := ctx.Deadline(); !ok && r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}
	// Never let a tool block on a terminal prompt.
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{
		Stdout: strings.TrimRight(stdout.String(), "\r\n"),
		Stderr: strings.TrimRight(stderr.String(), "\r\n"),
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return out, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, fmt.Errorf("%s: %w", name, ErrTimeout)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return out, fmt.Errorf("%s: %w", name, ErrNotInstalled)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{
			Name:     name,
			Args:     args,
			ExitCode: exitErr.ExitCode(),
			Stderr:   out.Stderr,
		}
	}
	return out, fmt.Errorf("run %s: %w", name, err)
}
