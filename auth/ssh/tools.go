package ssh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/ghswitch/runner"
)

// Default timeouts for the ssh tools.
const (
	DefaultKeygenTimeout  = 30 * time.Second
	DefaultAgentTimeout   = 10 * time.Second
	DefaultConnectTimeout = 10 * time.Second

	// connectGrace is added to the ssh ConnectTimeout for the process deadline.
	connectGrace = 5 * time.Second
)

// ErrKeyExists is returned instead of letting ssh-keygen overwrite a key.
var ErrKeyExists = errors.New("SSH key already exists")

// Tools runs ssh-keygen, ssh-add and ssh.
type Tools struct {
	runner         runner.CommandRunner
	logger         *slog.Logger
	keygenTimeout  time.Duration
	agentTimeout   time.Duration
	connectTimeout time.Duration
}

// ToolsOption configures Tools.
type ToolsOption func(*Tools)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ToolsOption {
	return func(t *Tools) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithKeygenTimeout bounds ssh-keygen.
func WithKeygenTimeout(d time.Duration) ToolsOption {
	return func(t *Tools) { t.keygenTimeout = d }
}

// WithAgentTimeout bounds ssh-add.
func WithAgentTimeout(d time.Duration) ToolsOption {
	return func(t *Tools) { t.agentTimeout = d }
}

// WithConnectTimeout sets the ssh ConnectTimeout used by TestConnection.
func WithConnectTimeout(d time.Duration) ToolsOption {
	return func(t *Tools) { t.connectTimeout = d }
}

// NewTools creates Tools over r.
func NewTools(r runner.CommandRunner, opts ...ToolsOption) *Tools {
	t := &Tools{
		runner:         r,
		logger:         slog.Default(),
		keygenTimeout:  DefaultKeygenTimeout,
		agentTimeout:   DefaultAgentTimeout,
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// KeygenRequest describes a key pair to create.
type KeygenRequest struct {
	Path       string
	Email      string
	Passphrase string
}

// GenerateKey creates an ed25519 key pair at req.Path. It refuses to
// overwrite an existing file and leaves the private key with mode 0600.
func (t *Tools) GenerateKey(ctx context.Context, req KeygenRequest) error {
	if _, err := os.Stat(req.Path); err == nil {
		return fmt.Errorf("%w: %s", ErrKeyExists, req.Path)
	}
	if err := os.MkdirAll(filepath.Dir(req.Path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.keygenTimeout)
	defer cancel()

	_, err := t.runner.Run(ctx, "", "ssh-keygen",
		"-t", "ed25519",
		"-C", req.Email,
		"-f", req.Path,
		"-N", req.Passphrase,
	)
	if err != nil {
		return fmt.Errorf("ssh-keygen: %w", err)
	}

	if err := os.Chmod(req.Path, 0o600); err != nil {
		return fmt.Errorf("restrict key permissions: %w", err)
	}
	t.logger.Info("generated ssh key", "path", req.Path)
	return nil
}

// AddToAgent loads the private key into the agent. Callers treat a
// failure as a warning; the key is still usable once added manually.
func (t *Tools) AddToAgent(ctx context.Context, keyPath string) error {
	ctx, cancel := context.WithTimeout(ctx, t.agentTimeout)
	defer cancel()

	if _, err := t.runner.Run(ctx, "", "ssh-add", keyPath); err != nil {
		t.logger.Warn("ssh-add failed", "path", keyPath, "error", err)
		return fmt.Errorf("ssh-add %s: %w", keyPath, err)
	}
	return nil
}

// ConnStatus classifies a connectivity test.
type ConnStatus string

// Connectivity outcomes.
const (
	ConnAuthenticated ConnStatus = "authenticated"
	ConnTimeout       ConnStatus = "timeout"
	ConnFailed        ConnStatus = "failed"
)

// ConnResult is the outcome of TestConnection.
type ConnResult struct {
	Status   ConnStatus
	Username string // GitHub login from the greeting, when authenticated
	Output   string // ssh stderr and stdout
	Err      error
}

var greetingPattern = regexp.MustCompile(`Hi ([^!]+)!`)

// TestConnection runs "ssh -T git@github.com-<alias>" in batch mode.
// GitHub closes the session with a non-zero exit after greeting, so the
// greeting text decides success rather than the exit status.
func (t *Tools) TestConnection(ctx context.Context, alias string) ConnResult {
	seconds := int(t.connectTimeout.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	ctx, cancel := context.WithTimeout(ctx, t.connectTimeout+connectGrace)
	defer cancel()

	out, err := t.runner.Run(ctx, "", "ssh",
		"-T", "git@github.com-"+alias,
		"-o", "ConnectTimeout="+strconv.Itoa(seconds),
		"-o", "BatchMode=yes",
	)
	res := ConnResult{Output: out.Combined(), Err: err}

	switch {
	case strings.Contains(out.Stderr, "successfully authenticated") ||
		strings.Contains(out.Stdout, "successfully authenticated"):
		res.Status = ConnAuthenticated
		res.Err = nil
		if m := greetingPattern.FindStringSubmatch(res.Output); m != nil {
			res.Username = m[1]
		}
	case errors.Is(err, runner.ErrTimeout) || strings.Contains(strings.ToLower(out.Stderr), "timed out"):
		res.Status = ConnTimeout
	default:
		res.Status = ConnFailed
		if res.Err == nil {
			res.Err = errors.New("unexpected ssh response")
		}
	}
	return res
}
