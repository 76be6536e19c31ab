// Package runner executes external processes (git, ssh, ssh-keygen,
// ssh-add) behind a small interface so callers can be tested without the
// real tools installed.
//
// Core types:
//   - CommandRunner: Interface for executing commands
//   - ExecRunner: Runs commands with os/exec under a context deadline
//   - MockRunner: Matches commands to canned output (for tests)
//   - SequentialMockRunner: Returns canned output in call order (for tests)
//
// A non-zero exit is reported as *ExitError, but the captured Output is
// still returned: some tools (ssh -T against GitHub) always exit non-zero
// and the caller has to inspect stderr.
//
// Example usage:
//
//	r := runner.NewExecRunner(runner.WithTimeout(15 * time.Second))
//	out, err := r.Run(ctx, "", "ssh", "-T", "git@github.com-work")
//	if errors.Is(err, runner.ErrTimeout) {
//	    // treat as transient
//	}
//	fmt.Println(out.Stderr)
package runner
