package git

import (
	"context"
	"errors"
	"testing"

	"github.com/randalmurphal/ghswitch/runner"
	"github.com/randalmurphal/ghswitch/testutil"
)

func newMockContext(t *testing.T, mock *runner.MockRunner) *Context {
	t.Helper()

	mock.OnCommand("git", "rev-parse", "--git-dir").Return(".git", nil)
	g, err := NewContext(context.Background(), "/repo", WithRunner(mock))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	return g
}

func TestNewContext_NotARepo(t *testing.T) {
	mock := runner.NewMockRunner()
	mock.OnCommand("git", "rev-parse", "--git-dir").ReturnOutput(
		runner.Output{Stderr: "fatal: not a git repository"},
		&runner.ExitError{Name: "git", ExitCode: 128, Stderr: "fatal: not a git repository"},
	)

	_, err := NewContext(context.Background(), "/tmp/nope", WithRunner(mock))
	if !errors.Is(err, ErrNotGitRepo) {
		t.Errorf("NewContext() error = %v, want ErrNotGitRepo", err)
	}

	var gitErr *Error
	if !errors.As(err, &gitErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if gitErr.Op != "open repository" {
		t.Errorf("Op = %q, want %q", gitErr.Op, "open repository")
	}
}

func TestRemoteURL(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		mock := runner.NewMockRunner()
		mock.OnCommand("git", "remote", "get-url", "origin").Return("git@github.com:acme/widgets.git\n", nil)
		g := newMockContext(t, mock)

		url, err := g.RemoteURL(context.Background(), "origin")
		if err != nil {
			t.Fatalf("RemoteURL() error = %v", err)
		}
		if url != "git@github.com:acme/widgets.git" {
			t.Errorf("RemoteURL() = %q", url)
		}
	})

	t.Run("missing", func(t *testing.T) {
		mock := runner.NewMockRunner()
		mock.OnCommand("git", "remote", "get-url", "origin").ReturnOutput(
			runner.Output{Stderr: "error: No such remote 'origin'"},
			&runner.ExitError{Name: "git", ExitCode: 2, Stderr: "error: No such remote 'origin'"},
		)
		g := newMockContext(t, mock)

		_, err := g.RemoteURL(context.Background(), "origin")
		if !errors.Is(err, ErrNoRemote) {
			t.Errorf("RemoteURL() error = %v, want ErrNoRemote", err)
		}
	})

	t.Run("other failure", func(t *testing.T) {
		mock := runner.NewMockRunner()
		mock.OnCommand("git", "remote", "get-url", "origin").Return("", runner.ErrTimeout)
		g := newMockContext(t, mock)

		_, err := g.RemoteURL(context.Background(), "origin")
		if !errors.Is(err, runner.ErrTimeout) {
			t.Errorf("RemoteURL() error = %v, want ErrTimeout", err)
		}
		if errors.Is(err, ErrNoRemote) {
			t.Error("timeout must not be reported as a missing remote")
		}
	})
}

func TestAddRemote_Exists(t *testing.T) {
	mock := runner.NewMockRunner()
	mock.OnCommand("git", "remote", "add", "origin", "git@github.com-work:acme/widgets.git").ReturnOutput(
		runner.Output{Stderr: "error: remote origin already exists."},
		&runner.ExitError{Name: "git", ExitCode: 3, Stderr: "error: remote origin already exists."},
	)
	g := newMockContext(t, mock)

	err := g.AddRemote(context.Background(), "origin", "git@github.com-work:acme/widgets.git")
	if !errors.Is(err, ErrRemoteExists) {
		t.Errorf("AddRemote() error = %v, want ErrRemoteExists", err)
	}
}

func TestLocalConfig(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		mock := runner.NewMockRunner()
		mock.OnCommand("git", "config", "--local", "--get", "user.email").Return("dev@example.com\n", nil)
		g := newMockContext(t, mock)

		got, err := g.LocalConfig(context.Background(), "user.email")
		if err != nil {
			t.Fatalf("LocalConfig() error = %v", err)
		}
		if got != "dev@example.com" {
			t.Errorf("LocalConfig() = %q, want %q", got, "dev@example.com")
		}
	})

	t.Run("unset", func(t *testing.T) {
		mock := runner.NewMockRunner()
		mock.OnCommand("git", "config", "--local", "--get", "user.email").Return(
			"", &runner.ExitError{Name: "git", ExitCode: 1},
		)
		g := newMockContext(t, mock)

		_, err := g.LocalConfig(context.Background(), "user.email")
		if !errors.Is(err, ErrConfigNotSet) {
			t.Errorf("LocalConfig() error = %v, want ErrConfigNotSet", err)
		}
	})
}

func TestSetIdentity(t *testing.T) {
	mock := runner.NewMockRunner()
	mock.OnCommand("git", "config", "--local", "user.name", "Dev").Return("", nil)
	mock.OnCommand("git", "config", "--local", "user.email", "dev@example.com").Return("", nil)
	g := newMockContext(t, mock)

	if err := g.SetIdentity(context.Background(), "Dev", "dev@example.com"); err != nil {
		t.Fatalf("SetIdentity() error = %v", err)
	}
	if !mock.WasCalled("git", "config", "--local", "user.name", "Dev") {
		t.Error("user.name not written")
	}
	if !mock.WasCalled("git", "config", "--local", "user.email", "dev@example.com") {
		t.Error("user.email not written")
	}
}

func TestGlobalConfig(t *testing.T) {
	mock := runner.NewMockRunner()
	mock.OnCommand("git", "config", "--global", "--get", "user.name").Return("Global User", nil)

	got, err := GlobalConfig(context.Background(), mock, "user.name")
	if err != nil {
		t.Fatalf("GlobalConfig() error = %v", err)
	}
	if got != "Global User" {
		t.Errorf("GlobalConfig() = %q", got)
	}
}

func TestIntegration_RemoteAndIdentity(t *testing.T) {
	dir := testutil.SetupTestRepo(t)
	ctx := testutil.Context(t)

	g, err := NewContext(ctx, dir)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}

	if _, err := g.RemoteURL(ctx, "origin"); !errors.Is(err, ErrNoRemote) {
		t.Errorf("RemoteURL() on fresh repo error = %v, want ErrNoRemote", err)
	}

	if err := g.AddRemote(ctx, "origin", "git@github.com-work:acme/widgets.git"); err != nil {
		t.Fatalf("AddRemote() error = %v", err)
	}
	if err := g.AddRemote(ctx, "origin", "git@github.com-work:acme/widgets.git"); !errors.Is(err, ErrRemoteExists) {
		t.Errorf("second AddRemote() error = %v, want ErrRemoteExists", err)
	}
	if err := g.SetRemoteURL(ctx, "origin", "git@github.com-home:acme/widgets.git"); err != nil {
		t.Fatalf("SetRemoteURL() error = %v", err)
	}
	if got := testutil.GetRemoteURL(t, dir, "origin"); got != "git@github.com-home:acme/widgets.git" {
		t.Errorf("origin = %q", got)
	}

	if err := g.SetIdentity(ctx, "Dev", "dev@example.com"); err != nil {
		t.Fatalf("SetIdentity() error = %v", err)
	}
	if got, _ := g.LocalConfig(ctx, "user.email"); got != "dev@example.com" {
		t.Errorf("user.email = %q", got)
	}
}

func TestIntegration_NotARepo(t *testing.T) {
	testutil.RequireGit(t)

	_, err := NewContext(testutil.Context(t), t.TempDir())
	if !errors.Is(err, ErrNotGitRepo) {
		t.Errorf("NewContext() error = %v, want ErrNotGitRepo", err)
	}
}
