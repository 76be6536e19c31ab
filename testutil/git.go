package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// RequireGit skips the test when the git binary is not installed.
func RequireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// SetupTestRepo creates a temporary git repository for testing.
// Returns the path to the repository.
// The repository is automatically cleaned up when the test ends.
func SetupTestRepo(t *testing.T) string {
	t.Helper()

	return InitRepo(t, t.TempDir())
}

// InitRepo initializes a git repository at dir, creating it if needed.
// No identity is configured so tests control user.name and user.email.
func InitRepo(t *testing.T, dir string) string {
	t.Helper()
	RequireGit(t)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create repo dir %s: %v", dir, err)
	}
	if err := runGit(t, dir, "init", "-q"); err != nil {
		t.Fatalf("git init failed: %v", err)
	}

	return dir
}

// SetupTestRepoWithRemote creates a test repo whose origin points at url.
func SetupTestRepoWithRemote(t *testing.T, url string) string {
	t.Helper()

	dir := SetupTestRepo(t)
	AddRemote(t, dir, "origin", url)
	return dir
}

// AddRemote adds a remote to the repository.
func AddRemote(t *testing.T, repoDir, name, url string) {
	t.Helper()

	if err := runGit(t, repoDir, "remote", "add", name, url); err != nil {
		t.Fatalf("git remote add %s %s failed: %v", name, url, err)
	}
}

// SetConfig sets a repository-local config value.
func SetConfig(t *testing.T, repoDir, key, value string) {
	t.Helper()

	if err := runGit(t, repoDir, "config", "--local", key, value); err != nil {
		t.Fatalf("git config %s failed: %v", key, err)
	}
}

// GetConfig reads a repository-local config value, "" if unset.
func GetConfig(t *testing.T, repoDir, key string) string {
	t.Helper()

	cmd := exec.Command("git", "config", "--local", "--get", key)
	cmd.Dir = repoDir
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return trimNewline(string(output))
}

// GetRemoteURL returns the URL of the named remote, "" if absent.
func GetRemoteURL(t *testing.T, repoDir, name string) string {
	t.Helper()

	cmd := exec.Command("git", "remote", "get-url", name)
	cmd.Dir = repoDir
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return trimNewline(string(output))
}

// IsolateGlobalConfig points HOME and XDG_CONFIG_HOME at a temp dir so
// git --global reads and writes never touch the developer's config.
func IsolateGlobalConfig(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	return home
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// runGit runs a git command in the specified directory.
func runGit(t *testing.T, dir string, args ...string) error {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test User",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test User",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("git %v output: %s", args, output)
		return err
	}

	return nil
}
