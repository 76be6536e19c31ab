package runner

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestExecRunner_Success(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil || runtime.GOOS == "windows" {
		t.Skip("sh not available")
	}

	r := NewExecRunner()
	out, err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo hello; echo oops >&2")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Stdout != "hello" {
		t.Errorf("Stdout = %q, want %q", out.Stdout, "hello")
	}
	if out.Stderr != "oops" {
		t.Errorf("Stderr = %q, want %q", out.Stderr, "oops")
	}
	if out.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", out.ExitCode)
	}
}

func TestExecRunner_WithEnv(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil || runtime.GOOS == "windows" {
		t.Skip("sh not available")
	}
	t.Setenv("GHSWITCH_INHERITED", "kept")

	r := NewExecRunner(WithEnv("GIT_TERMINAL_PROMPT=0"))
	out, err := r.Run(context.Background(), "", "sh", "-c", "echo $GIT_TERMINAL_PROMPT $GHSWITCH_INHERITED")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Stdout != "0 kept" {
		t.Errorf("Stdout = %q, want %q", out.Stdout, "0 kept")
	}
}

func TestExecRunner_NonZeroExitKeepsOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil || runtime.GOOS == "windows" {
		t.Skip("sh not available")
	}

	r := NewExecRunner()
	out, err := r.Run(context.Background(), "", "sh", "-c", "echo 'Hi there! You have successfully authenticated' >&2; exit 1")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", exitErr.ExitCode)
	}
	if !strings.Contains(out.Stderr, "successfully authenticated") {
		t.Errorf("Stderr = %q, want auth banner", out.Stderr)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil || runtime.GOOS == "windows" {
		t.Skip("sleep not available")
	}

	r := NewExecRunner(WithTimeout(50 * time.Millisecond))
	_, err := r.Run(context.Background(), "", "sleep", "5")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestExecRunner_NotInstalled(t *testing.T) {
	r := NewExecRunner()
	_, err := r.Run(context.Background(), "", "ghswitch-definitely-not-a-binary")
	if !errors.Is(err, ErrNotInstalled) {
		t.Errorf("error = %v, want ErrNotInstalled", err)
	}
}

func TestExitError_Message(t *testing.T) {
	err := &ExitError{Name: "git", Args: []string{"remote", "get-url", "origin"}, ExitCode: 2, Stderr: "error: No such remote 'origin'"}
	want := "git remote get-url origin: exit status 2: error: No such remote 'origin'"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := &ExitError{Name: "ssh-add", Args: []string{"-l"}, ExitCode: 1}
	if bare.Error() != "ssh-add -l: exit status 1" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestMockRunner(t *testing.T) {
	m := NewMockRunner()
	m.OnCommand("git", "config", "--global", "--get", "user.name").Return("Ada", nil)
	m.OnCommandIn("/repo/a", "git", "remote", "get-url", "origin").Return("git@github.com-work:acme/a.git", nil)
	m.OnCommand("git", "remote", "get-url", "origin").Return("", errors.New("no remote"))

	ctx := context.Background()

	out, err := m.Run(ctx, "", "git", "config", "--global", "--get", "user.name")
	if err != nil || out.Stdout != "Ada" {
		t.Errorf("Run() = %q, %v", out.Stdout, err)
	}

	out, err = m.Run(ctx, "/repo/a", "git", "remote", "get-url", "origin")
	if err != nil || out.Stdout != "git@github.com-work:acme/a.git" {
		t.Errorf("scoped Run() = %q, %v", out.Stdout, err)
	}

	if _, err := m.Run(ctx, "/repo/b", "git", "remote", "get-url", "origin"); err == nil {
		t.Error("expected fallback response error for /repo/b")
	}

	if _, err := m.Run(ctx, "", "git", "status"); err == nil {
		t.Error("expected error for unexpected command")
	}

	if !m.WasCalled("git", "status") {
		t.Error("WasCalled(git status) = false")
	}
	if len(m.Calls()) != 4 {
		t.Errorf("Calls() = %d, want 4", len(m.Calls()))
	}
}

func TestSequentialMockRunner(t *testing.T) {
	s := NewSequentialMockRunner()
	s.AddOutput("first", nil)
	s.AddOutputError("", "denied", errors.New("boom"))

	ctx := context.Background()
	out, err := s.Run(ctx, "", "a")
	if err != nil || out.Stdout != "first" {
		t.Errorf("first Run() = %q, %v", out.Stdout, err)
	}
	out, err = s.Run(ctx, "", "b")
	if err == nil || out.Stderr != "denied" {
		t.Errorf("second Run() = %q, %v", out.Stderr, err)
	}
	if _, err := s.Run(ctx, "", "c"); err == nil {
		t.Error("expected error once queue is empty")
	}
}
