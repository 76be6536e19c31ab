package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/randalmurphal/ghswitch/runner"
)

// Context manages git operations for a repository.
type Context struct {
	repoPath string               // Path to the working copy
	runner   runner.CommandRunner // Command runner (defaults to ExecRunner)
}

// Option configures Context.
type Option func(*Context)

// WithRunner sets a custom command runner for git operations.
// This is primarily used for testing to inject mock command execution.
func WithRunner(r runner.CommandRunner) Option {
	return func(g *Context) {
		g.runner = r
	}
}

// NewContext creates a new git context for the repository.
// It validates that the path is a git repository and applies any options.
func NewContext(ctx context.Context, repoPath string, opts ...Option) (*Context, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	g := &Context{
		repoPath: absPath,
		runner:   runner.NewExecRunner(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if _, err := g.runGit(ctx, "rev-parse", "--git-dir"); err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			return nil, &Error{Op: "open repository", Output: exitErr.Stderr, Err: ErrNotGitRepo}
		}
		return nil, &Error{Op: "open repository", Err: err}
	}

	return g, nil
}

// RepoPath returns the path to the working copy.
func (g *Context) RepoPath() string {
	return g.repoPath
}

// RemoteURL returns the URL of the specified remote.
// Returns ErrNoRemote if the remote is not configured.
func (g *Context) RemoteURL(ctx context.Context, remote string) (string, error) {
	url, err := g.runGit(ctx, "remote", "get-url", remote)
	if err != nil {
		if isNoSuchRemote(err) {
			return "", ErrNoRemote
		}
		return "", wrap("get remote URL", err)
	}
	return url, nil
}

// AddRemote adds a new remote.
// Returns ErrRemoteExists if a remote with that name is already configured.
func (g *Context) AddRemote(ctx context.Context, remote, url string) error {
	if _, err := g.runGit(ctx, "remote", "add", remote, url); err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && strings.Contains(exitErr.Stderr, "already exists") {
			return ErrRemoteExists
		}
		return wrap("add remote", err)
	}
	return nil
}

// SetRemoteURL changes the URL of an existing remote.
func (g *Context) SetRemoteURL(ctx context.Context, remote, url string) error {
	if _, err := g.runGit(ctx, "remote", "set-url", remote, url); err != nil {
		if isNoSuchRemote(err) {
			return ErrNoRemote
		}
		return wrap("set remote URL", err)
	}
	return nil
}

// LocalConfig reads a repository-local config value.
// Returns ErrConfigNotSet if the key has no local value.
func (g *Context) LocalConfig(ctx context.Context, key string) (string, error) {
	return getConfig(ctx, g.runner, g.repoPath, "--local", key)
}

// SetLocalConfig writes a repository-local config value.
func (g *Context) SetLocalConfig(ctx context.Context, key, value string) error {
	if _, err := g.runGit(ctx, "config", "--local", key, value); err != nil {
		return wrap("set config "+key, err)
	}
	return nil
}

// SetIdentity writes the repository-local user.name and user.email.
func (g *Context) SetIdentity(ctx context.Context, name, email string) error {
	if err := g.SetLocalConfig(ctx, "user.name", name); err != nil {
		return err
	}
	return g.SetLocalConfig(ctx, "user.email", email)
}

// GlobalConfig reads a config value at global scope.
// Returns ErrConfigNotSet if the key has no global value.
func GlobalConfig(ctx context.Context, r runner.CommandRunner, key string) (string, error) {
	return getConfig(ctx, r, "", "--global", key)
}

func getConfig(ctx context.Context, r runner.CommandRunner, dir, scope, key string) (string, error) {
	out, err := r.Run(ctx, dir, "git", "config", scope, "--get", key)
	if err != nil {
		// git config exits 1 when the key is absent.
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode == 1 {
			return "", ErrConfigNotSet
		}
		return "", wrap("get config "+key, err)
	}
	value := strings.TrimSpace(out.Stdout)
	if value == "" {
		return "", ErrConfigNotSet
	}
	return value, nil
}

// runGit executes a git command in the repository and returns trimmed stdout.
func (g *Context) runGit(ctx context.Context, args ...string) (string, error) {
	out, err := g.runner.Run(ctx, g.repoPath, "git", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}

func isNoSuchRemote(err error) bool {
	var exitErr *runner.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return strings.Contains(strings.ToLower(exitErr.Stderr), "no such remote")
}

func wrap(op string, err error) error {
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) {
		return &Error{Op: op, Output: strings.TrimSpace(exitErr.Stderr), Err: err}
	}
	return &Error{Op: op, Err: err}
}
