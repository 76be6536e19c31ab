package ssh

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"slices"
	"strings"

	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/randalmurphal/ghswitch/runner"
)

// ErrNoSSHAgent means neither SSH_AUTH_SOCK nor ssh-add reached an agent.
var ErrNoSSHAgent = errors.New("ssh-agent not available")

// KeyLister is the part of an agent the checker needs.
type KeyLister interface {
	List() ([]*agent.Key, error)
}

// AgentDialer opens an agent; the closer releases the connection.
type AgentDialer func() (KeyLister, io.Closer, error)

// DialAgent connects to the agent listening on SSH_AUTH_SOCK.
func DialAgent() (KeyLister, io.Closer, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, nil, ErrNoSSHAgent
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to ssh-agent at %s: %w", socket, err)
	}
	return agent.NewClient(conn), conn, nil
}

// AgentFingerprints returns the SHA256 fingerprint of every key ag holds.
func AgentFingerprints(ag KeyLister) ([]string, error) {
	keys, err := ag.List()
	if err != nil {
		return nil, fmt.Errorf("list agent keys: %w", err)
	}
	fps := make([]string, 0, len(keys))
	for _, k := range keys {
		fps = append(fps, ComputeFingerprint(k.Blob))
	}
	return fps, nil
}

// ComputeFingerprint formats a key blob the way ssh-keygen -l does.
// Blobs that do not parse as keys are hashed as-is.
func ComputeFingerprint(keyBlob []byte) string {
	if pub, err := gossh.ParsePublicKey(keyBlob); err == nil {
		return gossh.FingerprintSHA256(pub)
	}
	sum := sha256.Sum256(keyBlob)
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(sum[:])
}

// AgentChecker answers whether a key is loaded in the agent. It asks the
// agent socket directly and falls back to parsing ssh-add -l when the
// socket cannot be reached.
type AgentChecker struct {
	runner runner.CommandRunner
	dial   AgentDialer
}

// NewAgentChecker creates a checker. A nil dial disables the socket path.
func NewAgentChecker(r runner.CommandRunner, dial AgentDialer) *AgentChecker {
	return &AgentChecker{runner: r, dial: dial}
}

// HasKey reports whether the public key at pubPath is loaded.
// Returns ErrNoSSHAgent when no agent can be reached at all.
func (c *AgentChecker) HasKey(ctx context.Context, pubPath string) (bool, error) {
	info, err := ReadPublicKey(pubPath)
	if err != nil {
		return false, fmt.Errorf("read public key: %w", err)
	}

	loaded, err := c.loaded(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(loaded, info.Fingerprint), nil
}

// loaded prefers the agent socket; ssh-add -l is the fallback when the
// socket cannot be dialed.
func (c *AgentChecker) loaded(ctx context.Context) ([]string, error) {
	if c.dial != nil {
		ag, closer, err := c.dial()
		if err == nil {
			defer closer.Close()
			return AgentFingerprints(ag)
		}
	}
	return c.ListFingerprints(ctx)
}

// ListFingerprints runs ssh-add -l and returns the SHA256 fingerprints.
func (c *AgentChecker) ListFingerprints(ctx context.Context) ([]string, error) {
	out, err := c.runner.Run(ctx, "", "ssh-add", "-l")
	if err != nil {
		var exitErr *runner.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		// Exit 1: agent running without identities. Exit 2: no agent.
		switch exitErr.ExitCode {
		case 1:
			return nil, nil
		case 2:
			return nil, ErrNoSSHAgent
		}
		return nil, fmt.Errorf("ssh-add -l: %w", err)
	}
	return parseAgentList(out.Stdout), nil
}

// parseAgentList extracts fingerprints from lines such as
// "256 SHA256:abc... user@host (ED25519)".
func parseAgentList(output string) []string {
	var fps []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && strings.HasPrefix(fields[1], "SHA256:") {
			fps = append(fps, fields[1])
		}
	}
	return fps
}
