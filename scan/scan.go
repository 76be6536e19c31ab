package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/git"
	"github.com/randalmurphal/ghswitch/remote"
	"github.com/randalmurphal/ghswitch/runner"
)

// Status classifies a repository that is not bound to an account.
type Status string

// Binding statuses.
const (
	StatusBound             Status = "bound"
	StatusNoRemote          Status = "no remote"
	StatusNeedsOwnerMap     Status = "needs owner mapping"
	StatusNeedsAssignment   Status = "needs account assignment"
	StatusNonGitHub         Status = "non-GitHub"
	StatusUnrecognizedAlias Status = "unrecognized alias"
	StatusError             Status = "error"
)

// UnknownEmail is reported when a repository has no local user.email.
const UnknownEmail = "Unknown"

// originRemote is the only remote classification looks at.
const originRemote = "origin"

// Binding is the scan result for one repository.
type Binding struct {
	Path      string
	RemoteURL string
	Status    Status
	Account   string // set when Status is StatusBound
	Owner     string
	Repo      string
	Protocol  remote.Protocol
	Email     string
	Message   string // set when Status is StatusError
}

// Detected returns the account alias for a bound repository and the
// status text otherwise.
func (b Binding) Detected() string {
	if b.Status == StatusBound {
		return b.Account
	}
	return string(b.Status)
}

// IsBound reports whether the repository resolved to a known account.
func (b Binding) IsBound() bool {
	return b.Status == StatusBound
}

// Scanner finds and classifies repositories.
type Scanner struct {
	runner runner.CommandRunner
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRunner sets the command runner used for git.
func WithRunner(r runner.CommandRunner) Option {
	return func(s *Scanner) {
		s.runner = r
	}
}

// WithLogger sets the logger for skipped directories.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a Scanner.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		runner: runner.NewExecRunner(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root in lexical order and returns one Binding per repository.
// Only an invalid root or a cancelled context fails the scan.
func (s *Scanner) Scan(ctx context.Context, root string, snap account.Snapshot) ([]Binding, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", root)
	}

	var bindings []Binding
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			s.logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if !isRepository(path) {
			return nil
		}

		bindings = append(bindings, s.classify(ctx, path, snap))
		return filepath.SkipDir
	})
	if err != nil {
		return bindings, err
	}
	return bindings, nil
}

func (s *Scanner) classify(ctx context.Context, path string, snap account.Snapshot) Binding {
	b := Binding{Path: path, Email: UnknownEmail}

	repo, err := git.NewContext(ctx, path, git.WithRunner(s.runner))
	if err != nil {
		return failed(b, err)
	}

	url, err := repo.RemoteURL(ctx, originRemote)
	switch {
	case errors.Is(err, git.ErrNoRemote):
		url = ""
	case err != nil:
		return failed(b, err)
	}

	email, err := repo.LocalConfig(ctx, "user.email")
	switch {
	case err == nil:
		b.Email = email
	case !errors.Is(err, git.ErrConfigNotSet):
		s.logger.Warn("could not read user.email", "repo", path, "error", err)
	}

	b.RemoteURL = url
	Resolve(&b, snap)
	return b
}

// Resolve fills Status, Account, Owner, Repo and Protocol from
// b.RemoteURL and the snapshot.
func Resolve(b *Binding, snap account.Snapshot) {
	if b.RemoteURL == "" {
		b.Status = StatusNoRemote
		return
	}

	r, ok := remote.Parse(b.RemoteURL)
	if !ok {
		if remote.IsGitHub(b.RemoteURL) {
			b.Status = StatusNeedsAssignment
		} else {
			b.Status = StatusNonGitHub
		}
		return
	}

	b.Owner, b.Repo, b.Protocol = r.Owner, r.Repo, r.Protocol

	switch {
	case r.HasAlias():
		if snap.Has(r.Alias) {
			b.Status, b.Account = StatusBound, r.Alias
		} else {
			b.Status = StatusUnrecognizedAlias
		}
	case r.Protocol == remote.ProtocolHTTPS:
		if alias, ok := snap.OwnerAccount(r.Owner); ok && snap.Has(alias) {
			b.Status, b.Account = StatusBound, alias
		} else {
			b.Status = StatusNeedsOwnerMap
		}
	default:
		b.Status = StatusNeedsAssignment
	}
}

func failed(b Binding, err error) Binding {
	b.Status = StatusError
	b.Message = err.Error()
	return b
}

// isRepository reports whether dir holds a .git directory or file.
func isRepository(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, ".git"))
	return err == nil
}
