package git

import "errors"

// Git operation errors.
var (
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrNoRemote indicates the named remote is not configured.
	ErrNoRemote = errors.New("no such remote")

	// ErrRemoteExists indicates a remote with that name is already configured.
	ErrRemoteExists = errors.New("remote already exists")

	// ErrConfigNotSet indicates the config key has no value at the requested scope.
	ErrConfigNotSet = errors.New("config value not set")
)

// Error wraps a git command error with context.
type Error struct {
	Op     string // Operation that failed (e.g., "get remote URL")
	Output string // Captured stderr, if any
	Err    error  // Underlying error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return e.Op + ": " + e.Output
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
