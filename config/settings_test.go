package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, resolved, err := Load(filepath.Join(t.TempDir(), "config.yaml"), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.SSHDir != filepath.Join(home, ".ssh") {
		t.Errorf("SSHDir = %q", s.SSHDir)
	}
	if s.SSHConfigPath() != filepath.Join(home, ".ssh", "config") {
		t.Errorf("SSHConfigPath() = %q", s.SSHConfigPath())
	}
	if s.ConnectTimeout != 10*time.Second || s.KeygenTimeout != 30*time.Second || s.APITimeout != 30*time.Second {
		t.Errorf("timeouts = %v %v %v", s.ConnectTimeout, s.KeygenTimeout, s.APITimeout)
	}
	if s.LogLevel != slog.LevelWarn || s.LogFormat != LogFormatText {
		t.Errorf("logging = %v %q", s.LogLevel, s.LogFormat)
	}
	if resolved.Source(KeySSHDir) != SourceDefault {
		t.Errorf("source = %q", resolved.Source(KeySSHDir))
	}
}

func TestLoad_Layers(t *testing.T) {
	path := writeGlobal(t, "connect_timeout: 25\nlog_format: json\nslack_webhook_url: https://hooks.slack.test/x\n")
	t.Setenv("GHSWITCH_LOG_LEVEL", "debug")

	s, resolved, err := Load(path, map[string]string{KeySSHDir: "/flag/.ssh"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.ConnectTimeout != 25*time.Second {
		t.Errorf("ConnectTimeout = %v, want 25s", s.ConnectTimeout)
	}
	if s.LogFormat != LogFormatJSON || s.LogLevel != slog.LevelDebug {
		t.Errorf("logging = %v %q", s.LogLevel, s.LogFormat)
	}
	if s.SSHDir != "/flag/.ssh" || resolved.Source(KeySSHDir) != SourceFlag {
		t.Errorf("SSHDir = %q from %s", s.SSHDir, resolved.Source(KeySSHDir))
	}
	if s.SlackWebhookURL != "https://hooks.slack.test/x" {
		t.Errorf("SlackWebhookURL = %q", s.SlackWebhookURL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", KeyConnectTimeout, "soon"},
		{"zero duration", KeyKeygenTimeout, "0"},
		{"bad level", KeyLogLevel, "loud"},
		{"bad format", KeyLogFormat, "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load("", map[string]string{tt.key: tt.value})
			if err == nil {
				t.Errorf("Load() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"10", 10 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{" 5s ", 5 * time.Second, false},
		{"-1", 0, true},
		{"-5s", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.ssh", filepath.Join(home, ".ssh")},
		{"/abs/path", "/abs/path"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		got, err := ExpandHome(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != len(Defaults()) {
		t.Fatalf("Keys() = %v", keys)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("Keys() not sorted: %v", keys)
		}
	}
}
