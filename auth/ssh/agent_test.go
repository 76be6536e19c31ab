package ssh

import (
	"context"
	"errors"
	"io"
	"testing"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/randalmurphal/ghswitch/runner"
	"github.com/randalmurphal/ghswitch/testutil"
)

func TestDialAgent_NoSocket(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	if _, _, err := DialAgent(); !errors.Is(err, ErrNoSSHAgent) {
		t.Errorf("DialAgent() error = %v, want ErrNoSSHAgent", err)
	}
}

func TestDialAgent_InvalidSocket(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "/nonexistent/socket/path")

	_, _, err := DialAgent()
	if err == nil {
		t.Fatal("DialAgent() expected error for invalid socket")
	}
	if errors.Is(err, ErrNoSSHAgent) {
		t.Error("a dial failure is not the same as an unset socket")
	}
}

type fakeAgent struct {
	keys    []*agent.Key
	listErr error
}

func (f *fakeAgent) List() ([]*agent.Key, error) {
	return f.keys, f.listErr
}

type closeRecorder struct{ closed bool }

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func sampleKeyBlob(t *testing.T) []byte {
	t.Helper()
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(testutil.SamplePublicKey))
	if err != nil {
		t.Fatalf("parse sample key: %v", err)
	}
	return pub.Marshal()
}

func TestAgentFingerprints(t *testing.T) {
	blob := sampleKeyBlob(t)

	fps, err := AgentFingerprints(&fakeAgent{keys: []*agent.Key{
		{Format: "ssh-ed25519", Blob: blob},
		{Format: "ssh-rsa", Blob: []byte("not a key")},
	}})
	if err != nil {
		t.Fatalf("AgentFingerprints() error = %v", err)
	}
	if len(fps) != 2 {
		t.Fatalf("AgentFingerprints() = %v, want 2 entries", fps)
	}
	if fps[0] != sampleFingerprint {
		t.Errorf("fps[0] = %q, want %q", fps[0], sampleFingerprint)
	}
	if fps[1] != ComputeFingerprint([]byte("not a key")) {
		t.Errorf("fps[1] = %q, want raw blob hash", fps[1])
	}

	if _, err := AgentFingerprints(&fakeAgent{listErr: errors.New("agent refused")}); err == nil {
		t.Error("AgentFingerprints() expected list error")
	}
}

func dialerFor(ag *fakeAgent, closer *closeRecorder) AgentDialer {
	return func() (KeyLister, io.Closer, error) {
		return ag, closer, nil
	}
}

func noAgent() (KeyLister, io.Closer, error) {
	return nil, nil, ErrNoSSHAgent
}

func TestAgentChecker_Socket(t *testing.T) {
	keyPath := testutil.WriteKeyPair(t, t.TempDir(), "id_work", 0o600)
	blob := sampleKeyBlob(t)

	tests := []struct {
		name    string
		agent   *fakeAgent
		want    bool
		wantErr bool
	}{
		{name: "loaded", agent: &fakeAgent{keys: []*agent.Key{{Format: "ssh-ed25519", Blob: blob}}}, want: true},
		{name: "not loaded", agent: &fakeAgent{keys: []*agent.Key{{Format: "ssh-rsa", Blob: []byte("other")}}}},
		{name: "empty agent", agent: &fakeAgent{}},
		{name: "list error", agent: &fakeAgent{listErr: errors.New("agent refused")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closer := &closeRecorder{}
			mock := runner.NewMockRunner()
			checker := NewAgentChecker(mock, dialerFor(tt.agent, closer))

			got, err := checker.HasKey(context.Background(), keyPath+".pub")
			if (err != nil) != tt.wantErr {
				t.Fatalf("HasKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("HasKey() = %v, want %v", got, tt.want)
			}
			if !closer.closed {
				t.Error("agent connection not closed")
			}
			if mock.WasCalled("ssh-add", "-l") {
				t.Error("ssh-add -l must not run when the socket answered")
			}
		})
	}
}

func TestAgentChecker_SSHAddFallback(t *testing.T) {
	keyPath := testutil.WriteKeyPair(t, t.TempDir(), "id_work", 0o600)

	tests := []struct {
		name    string
		stdout  string
		err     error
		want    bool
		wantErr error
	}{
		{
			name:   "listed",
			stdout: "256 " + sampleFingerprint + " test@example.com (ED25519)\n3072 SHA256:other user@host (RSA)",
			want:   true,
		},
		{
			name:   "other keys only",
			stdout: "3072 SHA256:other user@host (RSA)",
		},
		{
			name: "no identities",
			err:  &runner.ExitError{Name: "ssh-add", ExitCode: 1, Stderr: "The agent has no identities."},
		},
		{
			name:    "no agent",
			err:     &runner.ExitError{Name: "ssh-add", ExitCode: 2, Stderr: "Could not open a connection to your authentication agent."},
			wantErr: ErrNoSSHAgent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := runner.NewMockRunner()
			mock.OnCommand("ssh-add", "-l").Return(tt.stdout, tt.err)
			checker := NewAgentChecker(mock, noAgent)

			got, err := checker.HasKey(context.Background(), keyPath+".pub")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("HasKey() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("HasKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgentChecker_MissingPublicKey(t *testing.T) {
	checker := NewAgentChecker(runner.NewMockRunner(), nil)

	if _, err := checker.HasKey(context.Background(), "/nonexistent/id.pub"); err == nil {
		t.Error("HasKey() expected error for missing public key")
	}
}
