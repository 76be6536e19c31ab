package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/ghapi"
	"github.com/randalmurphal/ghswitch/git"
	"github.com/randalmurphal/ghswitch/notify"
	"github.com/randalmurphal/ghswitch/remote"
	"github.com/randalmurphal/ghswitch/runner"
)

const (
	originRemote      = "origin"
	maxRepoNameLength = 100
)

var repoNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateRepoName checks a GitHub repository name.
func ValidateRepoName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRepoName)
	case len(name) > maxRepoNameLength:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidRepoName, name, maxRepoNameLength)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidRepoName, name)
	case !repoNamePattern.MatchString(name):
		return fmt.Errorf("%w: %q may only contain letters, digits, '.', '_' and '-'", ErrInvalidRepoName, name)
	}
	return nil
}

// Accounts is the part of the registry a Service needs.
type Accounts interface {
	Get(alias string) (account.Account, bool)
	MapOwner(ctx context.Context, owner, alias string) error
}

// RepoCreator creates repositories on GitHub.
type RepoCreator interface {
	CreateRepo(ctx context.Context, name string, private bool) (*ghapi.Repository, error)
}

// CreatorFactory builds a RepoCreator for a token.
type CreatorFactory func(token string) (RepoCreator, error)

// Service performs repository rebinding.
type Service struct {
	accounts   Accounts
	runner     runner.CommandRunner
	newCreator CreatorFactory
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRunner sets the runner used for git.
func WithRunner(r runner.CommandRunner) Option {
	return func(s *Service) { s.runner = r }
}

// WithCreatorFactory replaces the GitHub client constructor.
func WithCreatorFactory(f CreatorFactory) Option {
	return func(s *Service) { s.newCreator = f }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service over the account registry.
func NewService(accounts Accounts, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		runner:   runner.NewExecRunner(),
		logger:   slog.Default(),
		newCreator: func(token string) (RepoCreator, error) {
			return ghapi.New(token)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SwitchResult describes a completed switch.
type SwitchResult struct {
	Path    string
	Account string
	OldURL  string
	NewURL  string
	Owner   string
	Repo    string
}

// Switch rewrites origin to the account's aliased SSH URL, sets the local
// user.name and user.email, and maps the owner to the account. Aliased
// SSH, plain SSH and HTTPS origins are accepted. The owner is checked
// before anything is written, and origin is put back if a later step
// fails.
func (s *Service) Switch(ctx context.Context, repoPath, alias string) (SwitchResult, error) {
	acct, ok := s.accounts.Get(alias)
	if !ok {
		return SwitchResult{}, fmt.Errorf("%w: %s", account.ErrNotFound, alias)
	}

	repo, err := git.NewContext(ctx, repoPath, git.WithRunner(s.runner))
	if err != nil {
		return SwitchResult{}, err
	}

	oldURL, err := repo.RemoteURL(ctx, originRemote)
	if errors.Is(err, git.ErrNoRemote) {
		return SwitchResult{}, ErrNoRemote
	}
	if err != nil {
		return SwitchResult{}, err
	}

	r, ok := remote.Parse(oldURL)
	if !ok {
		return SwitchResult{}, fmt.Errorf("%w: %s", ErrNotGitHub, oldURL)
	}
	if err := account.ValidateOwner(r.Owner); err != nil {
		return SwitchResult{}, fmt.Errorf("map owner %s: %w", r.Owner, err)
	}

	res := SwitchResult{
		Path:    repo.RepoPath(),
		Account: alias,
		OldURL:  oldURL,
		NewURL:  remote.SSHURL(alias, r.Owner, r.Repo),
		Owner:   r.Owner,
		Repo:    r.Repo,
	}

	if res.NewURL != oldURL {
		if err := repo.SetRemoteURL(ctx, originRemote, res.NewURL); err != nil {
			return SwitchResult{}, err
		}
	}
	if err := repo.SetIdentity(ctx, acct.GitUserName(), acct.Email); err != nil {
		s.restoreOrigin(ctx, repo, res)
		return SwitchResult{}, err
	}
	if err := s.mapOwner(ctx, r.Owner, alias); err != nil {
		s.restoreOrigin(ctx, repo, res)
		return SwitchResult{}, err
	}

	s.logger.Info("switched repository", "repo", res.Path, "account", alias, "url", res.NewURL)
	ev := notify.NewEvent(notify.EventRepoSwitched, alias, fmt.Sprintf("%s now uses %s", res.Path, alias))
	ev.Repo = r.FullName()
	s.send(ctx, ev)
	return res, nil
}

// NewProject describes a repository without an origin to configure.
type NewProject struct {
	Path    string
	Owner   string
	Repo    string
	Account string

	// CreateOnGitHub creates the repository via POST /user/repos.
	CreateOnGitHub bool
	Private        bool
	// Token overrides the account's stored token for creation.
	Token string
}

// ProjectResult describes a configured project.
type ProjectResult struct {
	Path      string
	Account   string
	RemoteURL string

	// Created is set when the GitHub repository was created.
	Created *ghapi.Repository
	// CreateErr holds a GitHub failure. The local configuration is kept.
	CreateErr error
}

// WebURL returns the GitHub page for the project.
func (p NewProject) WebURL() string {
	return "https://github.com/" + p.Owner + "/" + p.Repo
}

// ConfigureNewProject adds origin with the account's aliased URL, sets the
// local identity and maps the owner. When requested it then creates the
// repository on GitHub; a failure there is reported in
// ProjectResult.CreateErr and does not undo the local changes.
func (s *Service) ConfigureNewProject(ctx context.Context, p NewProject) (ProjectResult, error) {
	if err := account.ValidateOwner(p.Owner); err != nil {
		return ProjectResult{}, err
	}
	if err := ValidateRepoName(p.Repo); err != nil {
		return ProjectResult{}, err
	}
	acct, ok := s.accounts.Get(p.Account)
	if !ok {
		return ProjectResult{}, fmt.Errorf("%w: %s", account.ErrNotFound, p.Account)
	}

	var creator RepoCreator
	if p.CreateOnGitHub {
		token := p.Token
		if token == "" {
			token = acct.Token
		}
		c, err := s.newCreator(token)
		if err != nil {
			return ProjectResult{}, fmt.Errorf("GitHub client for %s: %w", p.Account, err)
		}
		creator = c
	}

	repo, err := git.NewContext(ctx, p.Path, git.WithRunner(s.runner))
	if err != nil {
		return ProjectResult{}, err
	}
	existing, err := repo.RemoteURL(ctx, originRemote)
	switch {
	case err == nil:
		return ProjectResult{}, fmt.Errorf("%w: %s", ErrHasRemote, existing)
	case !errors.Is(err, git.ErrNoRemote):
		return ProjectResult{}, err
	}

	res := ProjectResult{
		Path:      repo.RepoPath(),
		Account:   p.Account,
		RemoteURL: remote.SSHURL(p.Account, p.Owner, p.Repo),
	}

	if err := repo.AddRemote(ctx, originRemote, res.RemoteURL); err != nil {
		if errors.Is(err, git.ErrRemoteExists) {
			return ProjectResult{}, ErrHasRemote
		}
		return ProjectResult{}, err
	}
	if err := repo.SetIdentity(ctx, acct.GitUserName(), acct.Email); err != nil {
		return res, err
	}
	if err := s.mapOwner(ctx, p.Owner, p.Account); err != nil {
		return res, err
	}

	ev := notify.NewEvent(notify.EventProjectCreated, p.Account, fmt.Sprintf("%s configured for %s", res.Path, p.Account))
	ev.Repo = p.Owner + "/" + p.Repo
	s.send(ctx, ev)

	if creator != nil {
		created, err := creator.CreateRepo(ctx, p.Repo, p.Private)
		if err != nil {
			s.logger.Warn("GitHub repository creation failed", "repo", p.Repo, "account", p.Account, "error", err)
			res.CreateErr = err
			return res, nil
		}
		res.Created = created

		ev := notify.NewEvent(notify.EventRepoCreated, p.Account, "created "+created.FullName)
		ev.Repo = created.FullName
		ev.Metadata = map[string]any{"private": created.Private, "url": created.HTMLURL}
		s.send(ctx, ev)
	}

	return res, nil
}

// MapRepoOwner maps the owner of a repository's origin to alias.
func (s *Service) MapRepoOwner(ctx context.Context, repoPath, alias string) (string, error) {
	repo, err := git.NewContext(ctx, repoPath, git.WithRunner(s.runner))
	if err != nil {
		return "", err
	}
	url, err := repo.RemoteURL(ctx, originRemote)
	if errors.Is(err, git.ErrNoRemote) {
		return "", ErrNoRemote
	}
	if err != nil {
		return "", err
	}

	r, ok := remote.Parse(url)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotGitHub, url)
	}
	if err := s.mapOwner(ctx, r.Owner, alias); err != nil {
		return "", err
	}
	return r.Owner, nil
}

// restoreOrigin puts back the origin URL a failed Switch replaced.
func (s *Service) restoreOrigin(ctx context.Context, repo *git.Context, res SwitchResult) {
	if res.NewURL == res.OldURL {
		return
	}
	if err := repo.SetRemoteURL(ctx, originRemote, res.OldURL); err != nil {
		s.logger.Error("restore origin after failed switch", "repo", res.Path, "url", res.OldURL, "error", err)
	}
}

func (s *Service) mapOwner(ctx context.Context, owner, alias string) error {
	if err := s.accounts.MapOwner(ctx, owner, alias); err != nil {
		return fmt.Errorf("map owner %s: %w", owner, err)
	}
	return nil
}

func (s *Service) send(ctx context.Context, ev notify.Event) {
	if err := notify.Send(ctx, ev); err != nil {
		s.logger.Warn("notification failed", "event", ev.Type, "error", err)
	}
}
