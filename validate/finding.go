package validate

// Severity ranks a finding.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Check names the check that produced a finding.
type Check string

// Checks, in report order.
const (
	CheckSSHDir      Check = "ssh-dir"
	CheckKeys        Check = "keys"
	CheckSSHConfig   Check = "ssh-config"
	CheckConnection  Check = "connectivity"
	CheckGitIdentity Check = "git-identity"
)

// Action names the automatic repair for a finding.
type Action string

// Repairs AutoFix knows how to apply.
const (
	ActionNone         Action = ""
	ActionCreateSSHDir Action = "create-ssh-dir"
	ActionChmodSSHDir  Action = "chmod-ssh-dir"
	ActionChmodKey     Action = "chmod-key"
	ActionAgentAdd     Action = "agent-add"
)

// Finding is one result of a check.
type Finding struct {
	Valid    bool
	Message  string
	Fix      string // human-readable remediation
	Severity Severity
	Check    Check
	Account  string // empty for machine-wide checks
	Action   Action
	Target   string // path the Action applies to
}

// Fixable reports whether AutoFix can attempt this finding.
func (f Finding) Fixable() bool {
	return !f.Valid && f.Action != ActionNone && f.Target != ""
}

// Summary counts findings by outcome.
type Summary struct {
	Errors   int
	Warnings int
	Passed   int
}

// Summarize tallies findings.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch {
		case f.Valid:
			s.Passed++
		case f.Severity == SeverityError:
			s.Errors++
		case f.Severity == SeverityWarning:
			s.Warnings++
		}
	}
	return s
}

// Healthy reports whether no errors or warnings were found.
func (s Summary) Healthy() bool {
	return s.Errors == 0 && s.Warnings == 0
}

func pass(check Check, account, message string) Finding {
	return Finding{Valid: true, Message: message, Severity: SeverityInfo, Check: check, Account: account}
}

func fail(check Check, account string, sev Severity, message, fix string) Finding {
	return Finding{Message: message, Fix: fix, Severity: sev, Check: check, Account: account}
}

func (f Finding) with(action Action, target string) Finding {
	f.Action = action
	f.Target = target
	return f
}
