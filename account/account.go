package account

import (
	"regexp"
	"strings"

	"github.com/randalmurphal/ghswitch/sshconfig"
)

// Account is one GitHub identity. Name doubles as the SSH host alias
// suffix and is immutable, as is SSHKeyPath.
type Account struct {
	Name           string
	Email          string
	SSHKeyPath     string
	GitHubUsername string // optional
	Token          string // optional personal access token
}

// HostAlias returns "github.com-<name>".
func (a Account) HostAlias() string {
	return sshconfig.HostAlias(a.Name)
}

// PublicKeyPath returns the path of the public half of the key pair.
func (a Account) PublicKeyPath() string {
	return a.SSHKeyPath + ".pub"
}

// HasToken reports whether a GitHub token is stored.
func (a Account) HasToken() bool {
	return a.Token != ""
}

// GitUserName is the user.name written to bound repositories: the
// GitHub username when known, the alias otherwise.
func (a Account) GitUserName() string {
	if a.GitHubUsername != "" {
		return a.GitHubUsername
	}
	return a.Name
}

// NewAccount holds the fields for Registry.Add.
type NewAccount struct {
	Name           string
	Email          string
	SSHKeyPath     string
	GitHubUsername string
	Token          string
}

// Update is a partial update. Nil fields are left unchanged; a pointer to
// "" clears an optional field.
type Update struct {
	Email          *string
	GitHubUsername *string
	Token          *string
}

const (
	maxNameLen     = 50
	maxUsernameLen = 39
)

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
)

// ValidateName checks an account alias.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &FieldError{Field: "name", Value: name, Reason: "must not be empty"}
	case len(name) > maxNameLen:
		return &FieldError{Field: "name", Value: name, Reason: "must be at most 50 characters"}
	case !namePattern.MatchString(name):
		return &FieldError{Field: "name", Value: name, Reason: "may only contain letters, digits, '_' and '-'"}
	}
	return nil
}

// ValidateEmail checks an email address.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return &FieldError{Field: "email", Value: email, Reason: "must look like user@example.com"}
	}
	return nil
}

// ValidateUsername checks a GitHub user or organization name: 1 to 39
// letters, digits or single hyphens, not starting or ending with a hyphen.
func ValidateUsername(username string) error {
	return validateLogin("github_username", username, false)
}

// ValidateOwner checks a repository owner. Owners follow the username
// rules but may also carry an enterprise-managed "_shortcode" suffix.
func ValidateOwner(owner string) error {
	return validateLogin("owner", owner, true)
}

func validateLogin(field, value string, managed bool) error {
	fail := func(reason string) error {
		return &FieldError{Field: field, Value: value, Reason: reason}
	}
	if value == "" {
		return fail("must not be empty")
	}
	if len(value) > maxUsernameLen {
		return fail("must be at most 39 characters")
	}
	if strings.HasPrefix(value, "-") || strings.HasSuffix(value, "-") {
		return fail("must not start or end with '-'")
	}
	if strings.Contains(value, "--") {
		return fail("must not contain consecutive '-'")
	}
	if managed {
		if strings.HasPrefix(value, "_") || strings.HasSuffix(value, "_") {
			return fail("must not start or end with '_'")
		}
	}
	for _, r := range value {
		if isAlnum(r) || r == '-' || (managed && r == '_') {
			continue
		}
		if managed {
			return fail("may only contain letters, digits, '-' and '_'")
		}
		return fail("may only contain letters, digits and '-'")
	}
	return nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func (n NewAccount) validate() error {
	if err := ValidateName(n.Name); err != nil {
		return err
	}
	if err := ValidateEmail(n.Email); err != nil {
		return err
	}
	if n.SSHKeyPath == "" {
		return &FieldError{Field: "ssh_key_path", Value: n.SSHKeyPath, Reason: "must not be empty"}
	}
	if n.GitHubUsername != "" {
		if err := ValidateUsername(n.GitHubUsername); err != nil {
			return err
		}
	}
	return nil
}

func (u Update) validate() error {
	if u.Email != nil {
		if err := ValidateEmail(*u.Email); err != nil {
			return err
		}
	}
	if u.GitHubUsername != nil && *u.GitHubUsername != "" {
		if err := ValidateUsername(*u.GitHubUsername); err != nil {
			return err
		}
	}
	return nil
}

func (u Update) apply(a Account) Account {
	if u.Email != nil {
		a.Email = *u.Email
	}
	if u.GitHubUsername != nil {
		a.GitHubUsername = *u.GitHubUsername
	}
	if u.Token != nil {
		a.Token = *u.Token
	}
	return a
}
