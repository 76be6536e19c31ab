package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/auth/ssh"
	"github.com/randalmurphal/ghswitch/backup"
	"github.com/randalmurphal/ghswitch/ghapi"
	"github.com/randalmurphal/ghswitch/git"
	"github.com/randalmurphal/ghswitch/project"
	"github.com/randalmurphal/ghswitch/runner"
)

// CLIError wraps an error with user-friendly context and suggestions.
type CLIError struct {
	// Err is the underlying error
	Err error

	// Message is a user-friendly description of what went wrong
	Message string

	// Suggestion is an actionable hint for the user
	Suggestion string

	// Details provides additional context (optional)
	Details string
}

func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// ErrorMessenger provides customizable error messages.
// Implement this interface to change the wording or the command names
// suggested to the user.
type ErrorMessenger interface {
	// AccountNotFoundMessage is used when no account has the alias.
	AccountNotFoundMessage() (message, suggestion string)

	// DuplicateAliasMessage is used when adding an alias that is taken.
	DuplicateAliasMessage() (message, suggestion string)

	// KeyMissingMessage is used when an account's private key file is gone.
	KeyMissingMessage() (message, suggestion string)

	// KeyExistsMessage is used when key generation would overwrite a file.
	KeyExistsMessage() (message, suggestion string)

	// AgentMessage is used when ssh-agent is not reachable.
	AgentMessage() (message, suggestion string)

	// InvalidRepoNameMessage is used for names GitHub would reject.
	InvalidRepoNameMessage() (message, suggestion string)

	// RemoteMessage is used for origin conflicts and missing origins.
	RemoteMessage(hasRemote bool) (message, suggestion string)

	// NotGitHubMessage is used when origin points somewhere other than GitHub.
	NotGitHubMessage() (message, suggestion string)

	// NotInGitRepoMessage is used when the path is not a git working tree.
	NotInGitRepoMessage() (message, suggestion string)

	// TokenMessage is used for missing, malformed or rejected tokens.
	TokenMessage() (message, suggestion string)

	// RepoExistsMessage is used when GitHub refuses to create the repository.
	RepoExistsMessage() (message, suggestion string)

	// BackupMessage is used when no backup matches or none exist.
	BackupMessage(none bool) (message, suggestion string)

	// PermissionDeniedMessage is used for filesystem permission failures.
	PermissionDeniedMessage() (message, suggestion string)

	// TimeoutMessage is used when a command or request ran out of time.
	TimeoutMessage() (message, suggestion string)

	// NotInstalledMessage is used when git or an ssh tool is missing.
	NotInstalledMessage() (message, suggestion string)

	// ConnectionErrorMessage is used when host cannot be reached.
	ConnectionErrorMessage(host string) (message, suggestion string)
}

// DefaultMessenger provides default error messages.
type DefaultMessenger struct{}

func (m DefaultMessenger) AccountNotFoundMessage() (string, string) {
	return "No account is registered under that alias.",
		"Run 'ghswitch account list' to see configured accounts."
}

func (m DefaultMessenger) DuplicateAliasMessage() (string, string) {
	return "An account with that alias already exists.",
		"Choose another alias or edit the existing account with 'ghswitch account edit'."
}

func (m DefaultMessenger) KeyMissingMessage() (string, string) {
	return "The SSH private key for this account does not exist.",
		"Generate one with 'ghswitch account keygen' or point the account at an existing key."
}

func (m DefaultMessenger) KeyExistsMessage() (string, string) {
	return "An SSH key already exists at that path.",
		"Pick a different key path or reuse the existing key."
}

func (m DefaultMessenger) AgentMessage() (string, string) {
	return "ssh-agent is not available.",
		"Start it with 'eval \"$(ssh-agent -s)\"' and try again."
}

func (m DefaultMessenger) InvalidRepoNameMessage() (string, string) {
	return "The repository name is not valid.",
		"Use letters, digits, '.', '-' or '_' and at most 100 characters."
}

func (m DefaultMessenger) RemoteMessage(hasRemote bool) (string, string) {
	if hasRemote {
		return "This repository already has an origin remote.",
			"Use 'ghswitch switch' to move it to another account."
	}
	return "This repository has no origin remote.",
		"Use 'ghswitch init-remote' to configure one."
}

func (m DefaultMessenger) NotGitHubMessage() (string, string) {
	return "The origin remote does not point at GitHub.",
		"Only github.com remotes can be bound to an account."
}

func (m DefaultMessenger) NotInGitRepoMessage() (string, string) {
	return "This command must be run on a git repository.",
		"Run it from a repository or pass the repository path."
}

func (m DefaultMessenger) TokenMessage() (string, string) {
	return "The GitHub token is missing or was rejected.",
		"Set a personal access token with 'ghswitch account edit --token' and check it with 'ghswitch token check'."
}

func (m DefaultMessenger) RepoExistsMessage() (string, string) {
	return "GitHub refused to create the repository.",
		"The name may already be taken on this account."
}

func (m DefaultMessenger) BackupMessage(none bool) (string, string) {
	if none {
		return "No backups exist yet.",
			"Create one with 'ghswitch backup create'."
	}
	return "No backup matches that id.",
		"Run 'ghswitch backup list' to see available backups."
}

func (m DefaultMessenger) PermissionDeniedMessage() (string, string) {
	return "Permission denied.",
		"Check the ownership and mode of ~/.ssh, or run 'ghswitch doctor --fix'."
}

func (m DefaultMessenger) TimeoutMessage() (string, string) {
	return "The operation timed out.",
		"Raise connect_timeout or command_timeout with 'ghswitch config set' and try again."
}

func (m DefaultMessenger) NotInstalledMessage() (string, string) {
	return "A required tool is not installed.",
		"Make sure git and OpenSSH are installed and on your PATH."
}

func (m DefaultMessenger) ConnectionErrorMessage(host string) (string, string) {
	return fmt.Sprintf("Cannot connect to %s", host),
		"Check that:\n  - Your network connection is working\n  - The SSH host alias exists in ~/.ssh/config"
}

// WrapConfig configures error wrapping behavior.
type WrapConfig struct {
	Messenger ErrorMessenger
}

// Option configures WrapConfig.
type Option func(*WrapConfig)

// WithMessenger sets a custom error messenger.
func WithMessenger(m ErrorMessenger) Option {
	return func(c *WrapConfig) {
		c.Messenger = m
	}
}

func getMessenger(opts []Option) ErrorMessenger {
	cfg := &WrapConfig{
		Messenger: DefaultMessenger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.Messenger
}

// Wrap attaches a message and suggestion to errors from the domain
// packages. Errors that are already a *CLIError, and errors it does not
// recognise, are returned unchanged.
func Wrap(err error, opts ...Option) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	m := getMessenger(opts)
	build := func(msg, suggestion string) error {
		return &CLIError{Err: err, Message: msg, Details: err.Error(), Suggestion: suggestion}
	}

	var fieldErr *account.FieldError
	switch {
	case errors.As(err, &fieldErr):
		return &CLIError{
			Err:        err,
			Message:    fmt.Sprintf("Invalid %s.", fieldErr.Field),
			Details:    fieldErr.Reason,
			Suggestion: "Correct the value and try again.",
		}
	case errors.Is(err, account.ErrNotFound):
		return build(m.AccountNotFoundMessage())
	case errors.Is(err, account.ErrDuplicateAlias):
		return build(m.DuplicateAliasMessage())
	case errors.Is(err, account.ErrKeyNotFound):
		return build(m.KeyMissingMessage())
	case errors.Is(err, ssh.ErrKeyExists):
		return build(m.KeyExistsMessage())
	case errors.Is(err, ssh.ErrNoSSHAgent):
		return build(m.AgentMessage())
	case errors.Is(err, project.ErrInvalidRepoName):
		return build(m.InvalidRepoNameMessage())
	case errors.Is(err, project.ErrHasRemote), errors.Is(err, git.ErrRemoteExists):
		return build(m.RemoteMessage(true))
	case errors.Is(err, project.ErrNoRemote), errors.Is(err, git.ErrNoRemote):
		return build(m.RemoteMessage(false))
	case errors.Is(err, project.ErrNotGitHub):
		return build(m.NotGitHubMessage())
	case errors.Is(err, git.ErrNotGitRepo):
		return build(m.NotInGitRepoMessage())
	case errors.Is(err, ghapi.ErrRepoExists):
		return build(m.RepoExistsMessage())
	case IsAuthError(err):
		return build(m.TokenMessage())
	case errors.Is(err, backup.ErrNoBackups):
		return build(m.BackupMessage(true))
	case errors.Is(err, backup.ErrNotFound):
		return build(m.BackupMessage(false))
	case errors.Is(err, runner.ErrNotInstalled):
		return build(m.NotInstalledMessage())
	case IsTimeoutError(err):
		return build(m.TimeoutMessage())
	case IsPermissionError(err):
		return build(m.PermissionDeniedMessage())
	}

	return err
}

// WrapConnectionError wraps connectivity failures against host with guidance.
func WrapConnectionError(err error, host string, opts ...Option) error {
	if err == nil {
		return nil
	}
	if !IsConnectionError(err) {
		return err
	}

	msg, suggestion := getMessenger(opts).ConnectionErrorMessage(host)
	return &CLIError{
		Err:        errors.Join(ErrConnectionFailed, err),
		Message:    msg,
		Details:    err.Error(),
		Suggestion: suggestion,
	}
}

// NewNotAuthenticatedError creates an error for an account without a usable token.
func NewNotAuthenticatedError(opts ...Option) error {
	msg, suggestion := getMessenger(opts).TokenMessage()
	return &CLIError{
		Err:        ErrNotAuthenticated,
		Message:    msg,
		Suggestion: suggestion,
	}
}

