// Package git provides the Git porcelain operations ghswitch needs:
// reading and rewriting remotes and reading and writing identity config.
//
// Core types:
//   - Context: Git repository context bound to a working copy
//   - Error: Wraps a failed git command with the operation name
//
// All commands go through a runner.CommandRunner so callers can inject
// runner.MockRunner in tests.
//
// Example usage:
//
//	repo, err := git.NewContext(ctx, "/path/to/repo")
//	url, err := repo.RemoteURL(ctx, "origin")
//	if errors.Is(err, git.ErrNoRemote) {
//	    // new project
//	}
//	err = repo.SetLocalConfig(ctx, "user.email", "me@example.com")
package git
