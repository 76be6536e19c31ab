package validate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/auth/ssh"
	"github.com/randalmurphal/ghswitch/git"
	"github.com/randalmurphal/ghswitch/notify"
	"github.com/randalmurphal/ghswitch/runner"
	"github.com/randalmurphal/ghswitch/sshconfig"
)

// Expected permission bits.
const (
	sshDirMode     fs.FileMode = 0o700
	privateKeyMode fs.FileMode = 0o600
)

// DefaultConcurrency caps how many checks run at once.
const DefaultConcurrency = 4

// AgentChecker reports whether a public key is loaded in ssh-agent.
type AgentChecker interface {
	HasKey(ctx context.Context, pubPath string) (bool, error)
}

// ConnectionTester runs the GitHub SSH authentication test for an alias.
type ConnectionTester interface {
	TestConnection(ctx context.Context, alias string) ssh.ConnResult
}

// KeyLoader loads a private key into ssh-agent.
type KeyLoader interface {
	AddToAgent(ctx context.Context, keyPath string) error
}

// HostConfig is read access to the SSH config file.
type HostConfig interface {
	Path() string
	Load() (string, error)
}

// Validator runs the health checks.
type Validator struct {
	sshDir string
	hosts  HostConfig

	runner runner.CommandRunner
	agent  AgentChecker
	conn   ConnectionTester
	loader KeyLoader
	logger *slog.Logger

	concurrency      int
	skipPermissions  bool
	skipConnectivity bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithRunner sets the runner used for git and, unless overridden, the
// SSH tools.
func WithRunner(r runner.CommandRunner) Option {
	return func(v *Validator) { v.runner = r }
}

// WithAgentChecker replaces the ssh-agent membership check.
func WithAgentChecker(a AgentChecker) Option {
	return func(v *Validator) { v.agent = a }
}

// WithConnectionTester replaces the GitHub connectivity test.
func WithConnectionTester(c ConnectionTester) Option {
	return func(v *Validator) { v.conn = c }
}

// WithKeyLoader replaces ssh-add for the agent-add repair.
func WithKeyLoader(l KeyLoader) Option {
	return func(v *Validator) { v.loader = l }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// WithConcurrency sets how many checks may run at once.
func WithConcurrency(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithSkipPermissions turns the permission-bit checks on or off. They are
// off by default on Windows.
func WithSkipPermissions(skip bool) Option {
	return func(v *Validator) { v.skipPermissions = skip }
}

// WithSkipConnectivity disables the network check.
func WithSkipConnectivity(skip bool) Option {
	return func(v *Validator) { v.skipConnectivity = skip }
}

// New creates a Validator for the SSH directory and config file.
func New(sshDir string, hosts HostConfig, opts ...Option) *Validator {
	v := &Validator{
		sshDir:          sshDir,
		hosts:           hosts,
		logger:          slog.Default(),
		concurrency:     DefaultConcurrency,
		skipPermissions: runtime.GOOS == "windows",
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.runner == nil {
		v.runner = runner.NewExecRunner()
	}
	tools := ssh.NewTools(v.runner, ssh.WithLogger(v.logger))
	if v.agent == nil {
		v.agent = ssh.NewAgentChecker(v.runner, ssh.DialAgent)
	}
	if v.conn == nil {
		v.conn = tools
	}
	if v.loader == nil {
		v.loader = tools
	}
	return v
}

type checkFunc func(ctx context.Context) []Finding

// ValidateAll runs every check against the snapshot and returns the
// findings in check order: SSH directory, keys per account, SSH config,
// connectivity per account, Git identity.
func (v *Validator) ValidateAll(ctx context.Context, snap account.Snapshot) []Finding {
	accounts := snap.Accounts()

	checks := []checkFunc{v.checkSSHDir}
	for _, a := range accounts {
		checks = append(checks, func(ctx context.Context) []Finding { return v.checkKey(ctx, a) })
	}
	checks = append(checks, func(ctx context.Context) []Finding { return v.checkSSHConfig(accounts) })
	if !v.skipConnectivity {
		for _, a := range accounts {
			checks = append(checks, func(ctx context.Context) []Finding { return v.checkConnection(ctx, a) })
		}
	}
	checks = append(checks, v.checkGitIdentity)

	results := make([][]Finding, len(checks))
	var g errgroup.Group
	g.SetLimit(v.concurrency)
	for i, check := range checks {
		g.Go(func() error {
			results[i] = check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var findings []Finding
	for _, r := range results {
		findings = append(findings, r...)
	}

	if s := Summarize(findings); s.Errors > 0 {
		ev := notify.NewEvent(notify.EventValidationFailed, "",
			fmt.Sprintf("health check found %d error(s) and %d warning(s)", s.Errors, s.Warnings))
		ev.Severity = notify.SeverityError
		ev.Metadata = map[string]any{"errors": s.Errors, "warnings": s.Warnings}
		if err := notify.Send(ctx, ev); err != nil {
			v.logger.Warn("notification failed", "event", ev.Type, "error", err)
		}
	}
	return findings
}

func (v *Validator) checkSSHDir(_ context.Context) []Finding {
	info, err := os.Stat(v.sshDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Finding{fail(CheckSSHDir, "", SeverityError,
			"SSH directory does not exist",
			fmt.Sprintf("Create %s with owner-only permissions (700)", v.sshDir),
		).with(ActionCreateSSHDir, v.sshDir)}
	}
	if err != nil {
		return []Finding{fail(CheckSSHDir, "", SeverityError,
			fmt.Sprintf("Cannot read SSH directory: %v", err),
			"Check the permissions of the parent directory")}
	}
	if !info.IsDir() {
		return []Finding{fail(CheckSSHDir, "", SeverityError,
			fmt.Sprintf("%s is not a directory", v.sshDir),
			"Move the file aside and create the SSH directory")}
	}
	if !v.skipPermissions && info.Mode().Perm() != sshDirMode {
		return []Finding{fail(CheckSSHDir, "", SeverityWarning,
			"SSH directory has incorrect permissions",
			"Run: chmod 700 "+v.sshDir,
		).with(ActionChmodSSHDir, v.sshDir)}
	}
	return []Finding{pass(CheckSSHDir, "", "SSH directory is properly configured")}
}

func (v *Validator) checkKey(ctx context.Context, a account.Account) []Finding {
	info, err := os.Stat(a.SSHKeyPath)
	if err != nil {
		msg := "Private key missing for " + a.Name
		if !errors.Is(err, fs.ErrNotExist) {
			msg = fmt.Sprintf("Cannot read private key for %s: %v", a.Name, err)
		}
		return []Finding{fail(CheckKeys, a.Name, SeverityError, msg,
			"Regenerate the SSH key for "+a.Name)}
	}
	if _, err := os.Stat(a.PublicKeyPath()); err != nil {
		return []Finding{fail(CheckKeys, a.Name, SeverityError,
			"Public key missing for "+a.Name,
			"Regenerate the SSH key pair for "+a.Name)}
	}

	var findings []Finding
	if !v.skipPermissions && info.Mode().Perm() != privateKeyMode {
		findings = append(findings, fail(CheckKeys, a.Name, SeverityWarning,
			"Private key has incorrect permissions for "+a.Name,
			"Run: chmod 600 "+a.SSHKeyPath,
		).with(ActionChmodKey, a.SSHKeyPath))
	}

	loaded, err := v.agent.HasKey(ctx, a.PublicKeyPath())
	switch {
	case err != nil:
		findings = append(findings, fail(CheckKeys, a.Name, SeverityWarning,
			fmt.Sprintf("Could not check SSH agent for %s: %v", a.Name, err),
			"Start ssh-agent, then run: ssh-add "+a.SSHKeyPath,
		).with(ActionAgentAdd, a.SSHKeyPath))
	case !loaded:
		findings = append(findings, fail(CheckKeys, a.Name, SeverityWarning,
			"SSH key not loaded in agent for "+a.Name,
			"Run: ssh-add "+a.SSHKeyPath,
		).with(ActionAgentAdd, a.SSHKeyPath))
	}

	if len(findings) == 0 {
		findings = append(findings, pass(CheckKeys, a.Name, "SSH key is valid for "+a.Name))
	}
	return findings
}

func (v *Validator) checkSSHConfig(accounts []account.Account) []Finding {
	if _, err := os.Stat(v.hosts.Path()); errors.Is(err, fs.ErrNotExist) {
		return []Finding{fail(CheckSSHConfig, "", SeverityWarning,
			"SSH config file does not exist",
			"Create the SSH config by adding an account")}
	}

	text, err := v.hosts.Load()
	if err != nil {
		return []Finding{fail(CheckSSHConfig, "", SeverityError,
			fmt.Sprintf("Error reading SSH config: %v", err),
			"Check SSH config file permissions and syntax")}
	}

	findings := make([]Finding, 0, len(accounts))
	for _, a := range accounts {
		if !sshconfig.HasBlock(text, a.Name) {
			findings = append(findings, fail(CheckSSHConfig, a.Name, SeverityError,
				"SSH config missing for "+a.Name,
				fmt.Sprintf("Add a %q entry by removing and re-adding the account", "Host "+a.HostAlias())))
			continue
		}
		findings = append(findings, pass(CheckSSHConfig, a.Name, "SSH config is valid for "+a.Name))
	}
	return findings
}

func (v *Validator) checkConnection(ctx context.Context, a account.Account) []Finding {
	res := v.conn.TestConnection(ctx, a.Name)
	switch res.Status {
	case ssh.ConnAuthenticated:
		return []Finding{pass(CheckConnection, a.Name, "GitHub connection successful for "+a.Name)}
	case ssh.ConnTimeout:
		return []Finding{fail(CheckConnection, a.Name, SeverityWarning,
			"GitHub connection timeout for "+a.Name,
			"Check your internet connection and SSH configuration")}
	default:
		return []Finding{fail(CheckConnection, a.Name, SeverityError,
			"GitHub authentication failed for "+a.Name,
			"Check that the public key is registered with the GitHub account")}
	}
}

func (v *Validator) checkGitIdentity(ctx context.Context) []Finding {
	_, nameErr := git.GlobalConfig(ctx, v.runner, "user.name")
	_, emailErr := git.GlobalConfig(ctx, v.runner, "user.email")

	for _, err := range []error{nameErr, emailErr} {
		if err != nil && !errors.Is(err, git.ErrConfigNotSet) {
			return []Finding{fail(CheckGitIdentity, "", SeverityError,
				fmt.Sprintf("Error checking Git configuration: %v", err),
				"Ensure Git is properly installed")}
		}
	}
	if nameErr != nil || emailErr != nil {
		return []Finding{fail(CheckGitIdentity, "", SeverityWarning,
			"Git global configuration is incomplete",
			"Set the global Git user name and email: git config --global user.name/user.email")}
	}
	return []Finding{pass(CheckGitIdentity, "", "Git global configuration is set")}
}
