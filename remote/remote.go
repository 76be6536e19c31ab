// Package remote parses GitHub remote URLs, including the
// github.com-<alias> host form used to bind a repository to an account.
package remote

import (
	"net/url"
	"regexp"
	"strings"
)

// Protocol is the transport named by a remote URL.
type Protocol string

// Supported protocols.
const (
	ProtocolSSH   Protocol = "ssh"
	ProtocolHTTPS Protocol = "https"
)

// HostPrefix is the SSH host alias prefix; the account alias follows it.
const HostPrefix = "github.com-"

// Remote is a parsed GitHub remote.
type Remote struct {
	Alias    string // account alias from github.com-<alias>, "" otherwise
	Owner    string
	Repo     string
	Protocol Protocol
}

// HasAlias reports whether the remote uses an account host alias.
func (r Remote) HasAlias() bool {
	return r.Alias != ""
}

// FullName returns "owner/repo".
func (r Remote) FullName() string {
	return r.Owner + "/" + r.Repo
}

var (
	aliasSSHPattern = regexp.MustCompile(`^git@github\.com-([^:/\s]+):([^/]+)/([^/]+?)(?:\.git)?$`)
	plainSSHPattern = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(?:\.git)?$`)
	httpsPattern    = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
)

// Parse recognizes the three GitHub remote forms, in order:
//
//	git@github.com-<alias>:<owner>/<repo>[.git]
//	git@github.com:<owner>/<repo>[.git]
//	https://github.com/<owner>/<repo>[.git][/]
//
// Anything else, including other hosts, returns false. Case is preserved.
func Parse(rawURL string) (Remote, bool) {
	if m := aliasSSHPattern.FindStringSubmatch(rawURL); m != nil {
		return Remote{Alias: m[1], Owner: m[2], Repo: m[3], Protocol: ProtocolSSH}, true
	}
	if m := plainSSHPattern.FindStringSubmatch(rawURL); m != nil {
		return Remote{Owner: m[1], Repo: m[2], Protocol: ProtocolSSH}, true
	}
	if m := httpsPattern.FindStringSubmatch(rawURL); m != nil {
		return Remote{Owner: m[1], Repo: m[2], Protocol: ProtocolHTTPS}, true
	}
	return Remote{}, false
}

// SSHURL builds the aliased SSH remote for an account.
func SSHURL(alias, owner, repo string) string {
	return "git@" + HostPrefix + alias + ":" + owner + "/" + repo + ".git"
}

// IsGitHub reports whether the URL points at github.com or an account
// alias of it, in scp-like or URL form. It accepts URLs Parse rejects,
// such as ssh://git@github.com/owner/repo.
func IsGitHub(rawURL string) bool {
	host := Host(rawURL)
	return host == "github.com" || strings.HasPrefix(host, HostPrefix)
}

// Host extracts the lower-cased host of a remote URL, "" if none.
func Host(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	if strings.Contains(rawURL, "://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return ""
		}
		return strings.ToLower(u.Hostname())
	}

	// scp-like: [user@]host:path
	colon := strings.Index(rawURL, ":")
	if colon <= 0 {
		return ""
	}
	hostPart := rawURL[:colon]
	if strings.Contains(hostPart, "/") {
		return ""
	}
	if at := strings.LastIndex(hostPart, "@"); at >= 0 {
		hostPart = hostPart[at+1:]
	}
	return strings.ToLower(hostPart)
}
