package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/auth"
	"github.com/randalmurphal/ghswitch/runner"
	"github.com/randalmurphal/ghswitch/sshconfig"
)

// ToolStatus is whether an external program ghswitch needs can run.
type ToolStatus struct {
	Name      string
	Available bool
	Detail    string
}

// PathEntry labels one configured path in a report.
type PathEntry struct {
	Label string
	Path  string
}

// AccountReport is the per-account part of a report. Tokens appear only
// as fingerprints.
type AccountReport struct {
	Name             string
	Email            string
	GitHubUsername   string
	KeyPath          string
	KeyExists        bool
	PublicKeyExists  bool
	TokenFingerprint string
}

// Report is a troubleshooting snapshot of the machine and configuration.
type Report struct {
	Generated       time.Time
	Platform        string
	Tools           []ToolStatus
	Paths           []PathEntry
	LastScannedPath string
	Accounts        []AccountReport

	// SSHConfig is the config text; SSHConfigErr is set when it could
	// not be read. Neither is set when the file does not exist.
	SSHConfig      string
	SSHConfigErr   error
	SSHConfigFound bool
	ManagedAliases []string

	Findings []Finding
}

// ReportInput is what the caller knows that the Validator does not.
type ReportInput struct {
	Snapshot        account.Snapshot
	LastScannedPath string
	Paths           []PathEntry
}

// toolChecks are the commands used to check tool availability.
var toolChecks = []struct {
	name string
	args []string
}{
	{"git", []string{"--version"}},
	{"ssh", []string{"-V"}},
	{"ssh-keygen", []string{"-?"}},
}

// Collect builds a Report, running the full validation along the way.
func (v *Validator) Collect(ctx context.Context, in ReportInput) Report {
	rep := Report{
		Generated:       time.Now().UTC(),
		Platform:        runtime.GOOS + "/" + runtime.GOARCH,
		Paths:           append([]PathEntry{{"SSH directory", v.sshDir}, {"SSH config", v.hosts.Path()}}, in.Paths...),
		LastScannedPath: in.LastScannedPath,
	}

	for _, c := range toolChecks {
		rep.Tools = append(rep.Tools, v.toolStatus(ctx, c.name, c.args...))
	}

	for _, a := range in.Snapshot.Accounts() {
		rep.Accounts = append(rep.Accounts, AccountReport{
			Name:             a.Name,
			Email:            a.Email,
			GitHubUsername:   a.GitHubUsername,
			KeyPath:          a.SSHKeyPath,
			KeyExists:        fileExists(a.SSHKeyPath),
			PublicKeyExists:  fileExists(a.PublicKeyPath()),
			TokenFingerprint: auth.TokenFingerprint(a.Token),
		})
	}

	if fileExists(v.hosts.Path()) {
		rep.SSHConfigFound = true
		text, err := v.hosts.Load()
		if err != nil {
			rep.SSHConfigErr = err
		} else {
			rep.SSHConfig = text
			rep.ManagedAliases = sshconfig.Parse(text).Aliases()
		}
	}

	rep.Findings = v.ValidateAll(ctx, in.Snapshot)
	return rep
}

func (v *Validator) toolStatus(ctx context.Context, name string, args ...string) ToolStatus {
	out, err := v.runner.Run(ctx, "", name, args...)
	st := ToolStatus{Name: name}
	var exitErr *runner.ExitError
	switch {
	case errors.Is(err, runner.ErrNotInstalled):
		st.Detail = "not installed"
	case err == nil:
		st.Available = true
		st.Detail = firstLine(out.Combined())
	case errors.As(err, &exitErr):
		// ssh-keygen has no version flag and exits non-zero on "-?".
		st.Available = true
		st.Detail = "installed"
	default:
		st.Detail = err.Error()
	}
	return st
}

// WriteTo renders the report as plain text.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	section := func(title string) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== %s ===\n", title)
	}

	section("ghswitch debug information")
	fmt.Fprintf(&b, "Generated: %s\n", r.Generated.Format(time.RFC3339))
	fmt.Fprintf(&b, "Platform: %s\n", r.Platform)

	section("Tools")
	for _, t := range r.Tools {
		status := "OK"
		if !t.Available {
			status = "MISSING"
		}
		fmt.Fprintf(&b, "%s: %s - %s\n", t.Name, status, t.Detail)
	}

	section("Configuration")
	for _, p := range r.Paths {
		fmt.Fprintf(&b, "%s: %s\n", p.Label, p.Path)
	}
	fmt.Fprintf(&b, "Last scanned path: %s\n", orNone(r.LastScannedPath))

	section("Accounts")
	if len(r.Accounts) == 0 {
		b.WriteString("No accounts configured\n")
	}
	for _, a := range r.Accounts {
		fmt.Fprintf(&b, "Account: %s\n", a.Name)
		fmt.Fprintf(&b, "  Email: %s\n", a.Email)
		fmt.Fprintf(&b, "  GitHub username: %s\n", orNone(a.GitHubUsername))
		fmt.Fprintf(&b, "  SSH key: %s\n", a.KeyPath)
		fmt.Fprintf(&b, "  Key exists: %t\n", a.KeyExists)
		fmt.Fprintf(&b, "  Public key exists: %t\n", a.PublicKeyExists)
		fmt.Fprintf(&b, "  Token: %s\n", orNone(a.TokenFingerprint))
	}

	section("SSH configuration")
	switch {
	case !r.SSHConfigFound:
		b.WriteString("SSH config file does not exist\n")
	case r.SSHConfigErr != nil:
		fmt.Fprintf(&b, "Error reading SSH config: %v\n", r.SSHConfigErr)
	default:
		fmt.Fprintf(&b, "Managed hosts: %s\n", orNone(strings.Join(r.ManagedAliases, ", ")))
		b.WriteString(r.SSHConfig)
		if !strings.HasSuffix(r.SSHConfig, "\n") {
			b.WriteString("\n")
		}
	}

	section("Validation results")
	for _, f := range r.Findings {
		status := "PASS"
		if !f.Valid {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s\n", status, f.Message)
		if !f.Valid && f.Fix != "" {
			fmt.Fprintf(&b, "  Fix: %s\n", f.Fix)
		}
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
