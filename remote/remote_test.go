package remote

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   Remote
		wantOK bool
	}{
		{
			name:   "aliased ssh with .git",
			url:    "git@github.com-work:acme/widgets.git",
			want:   Remote{Alias: "work", Owner: "acme", Repo: "widgets", Protocol: ProtocolSSH},
			wantOK: true,
		},
		{
			name:   "aliased ssh without .git",
			url:    "git@github.com-personal_2:me/dotfiles",
			want:   Remote{Alias: "personal_2", Owner: "me", Repo: "dotfiles", Protocol: ProtocolSSH},
			wantOK: true,
		},
		{
			name:   "plain ssh",
			url:    "git@github.com:acme/widgets.git",
			want:   Remote{Owner: "acme", Repo: "widgets", Protocol: ProtocolSSH},
			wantOK: true,
		},
		{
			name:   "https",
			url:    "https://github.com/acme/widgets",
			want:   Remote{Owner: "acme", Repo: "widgets", Protocol: ProtocolHTTPS},
			wantOK: true,
		},
		{
			name:   "https with .git and slash",
			url:    "https://github.com/acme/widgets.git/",
			want:   Remote{Owner: "acme", Repo: "widgets", Protocol: ProtocolHTTPS},
			wantOK: true,
		},
		{
			name:   "repo with dots keeps inner dots",
			url:    "git@github.com:acme/my.site.git",
			want:   Remote{Owner: "acme", Repo: "my.site", Protocol: ProtocolSSH},
			wantOK: true,
		},
		{
			name:   "case preserved",
			url:    "https://github.com/Acme/Widgets",
			want:   Remote{Owner: "Acme", Repo: "Widgets", Protocol: ProtocolHTTPS},
			wantOK: true,
		},
		{name: "gitlab", url: "git@gitlab.com:acme/widgets.git"},
		{name: "bitbucket https", url: "https://bitbucket.org/acme/widgets"},
		{name: "ssh scheme", url: "ssh://git@github.com/acme/widgets.git"},
		{name: "http", url: "http://github.com/acme/widgets"},
		{name: "nested path", url: "https://github.com/acme/widgets/tree/main"},
		{name: "missing repo", url: "git@github.com:acme"},
		{name: "empty", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestParse_SSHURLRoundTrip(t *testing.T) {
	url := SSHURL("work", "acme", "widgets")
	if url != "git@github.com-work:acme/widgets.git" {
		t.Fatalf("SSHURL() = %q", url)
	}

	got, ok := Parse(url)
	if !ok {
		t.Fatalf("Parse(SSHURL()) failed")
	}
	want := Remote{Alias: "work", Owner: "acme", Repo: "widgets", Protocol: ProtocolSSH}
	if got != want {
		t.Errorf("Parse(SSHURL()) = %+v, want %+v", got, want)
	}
	if !got.HasAlias() || got.FullName() != "acme/widgets" {
		t.Errorf("HasAlias/FullName = %v/%q", got.HasAlias(), got.FullName())
	}
}

func TestIsGitHub(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"git@github.com:acme/widgets.git", true},
		{"git@github.com-work:acme/widgets.git", true},
		{"ssh://git@github.com/acme/widgets.git", true},
		{"https://GitHub.com/acme/widgets/tree/main", true},
		{"git@gitlab.com:acme/widgets.git", false},
		{"https://example.com/acme/widgets", false},
		{"/srv/git/widgets.git", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsGitHub(tt.url); got != tt.want {
			t.Errorf("IsGitHub(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
