package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestSetupTestRepoWithRemote(t *testing.T) {
	dir := SetupTestRepoWithRemote(t, "git@github.com-work:acme/widgets.git")

	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		t.Fatalf(".git missing: %v", err)
	}
	if got := GetRemoteURL(t, dir, "origin"); got != "git@github.com-work:acme/widgets.git" {
		t.Errorf("origin = %q", got)
	}
	if got := GetRemoteURL(t, dir, "upstream"); got != "" {
		t.Errorf("upstream = %q, want empty", got)
	}
}

func TestSetConfig(t *testing.T) {
	dir := SetupTestRepo(t)

	if got := GetConfig(t, dir, "user.email"); got != "" {
		t.Errorf("user.email before = %q, want empty", got)
	}
	SetConfig(t, dir, "user.email", "dev@example.com")
	if got := GetConfig(t, dir, "user.email"); got != "dev@example.com" {
		t.Errorf("user.email = %q", got)
	}
}

func TestWriteKeyPair(t *testing.T) {
	dir := SSHDir(t)
	path := WriteKeyPair(t, dir, "id_work", 0o644)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat private key: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %o, want 644", info.Mode().Perm())
	}
	if got := ReadFile(t, path+".pub"); got != SamplePublicKey+"\n" {
		t.Errorf("public key = %q", got)
	}
}

func TestContext(t *testing.T) {
	ctx := Context(t)

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("Context() has no deadline")
	}
	if left := time.Until(deadline); left > commandBudget {
		t.Errorf("deadline in %v, want at most %v", left, commandBudget)
	}
	if ctx.Err() != nil {
		t.Errorf("ctx.Err() = %v, want nil", ctx.Err())
	}
}

func TestContextTimeout(t *testing.T) {
	ctx := ContextTimeout(t, 10*time.Millisecond)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not time out")
	}
}
