package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is the environment variable prefix for every key.
const EnvPrefix = "GHSWITCH_"

// Setting keys.
const (
	KeySSHDir          = "ssh_dir"
	KeyRegistryPath    = "registry_path"
	KeyBackupDir       = "backup_dir"
	KeyConnectTimeout  = "connect_timeout"
	KeyCommandTimeout  = "command_timeout"
	KeyKeygenTimeout   = "keygen_timeout"
	KeyAPITimeout      = "api_timeout"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyWebhookURL      = "webhook_url"
	KeySlackWebhookURL = "slack_webhook_url"
	KeySlackChannel    = "slack_channel"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Settings is the typed, resolved configuration.
type Settings struct {
	SSHDir       string
	RegistryPath string
	BackupDir    string

	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	KeygenTimeout  time.Duration
	APITimeout     time.Duration

	LogLevel  slog.Level
	LogFormat string

	WebhookURL      string
	SlackWebhookURL string
	SlackChannel    string
}

// SSHConfigPath returns the SSH client config inside SSHDir.
func (s Settings) SSHConfigPath() string {
	return filepath.Join(s.SSHDir, "config")
}

// appDir is the ghswitch directory under the user config dir.
func appDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ghswitch")
	}
	return filepath.Join("~", ".config", "ghswitch")
}

// DefaultGlobalPath returns the global config file location.
func DefaultGlobalPath() string {
	return filepath.Join(appDir(), "config.yaml")
}

// Defaults returns the built-in value of every key.
func Defaults() map[string]string {
	dir := appDir()
	return map[string]string{
		KeySSHDir:          "~/.ssh",
		KeyRegistryPath:    filepath.Join(dir, "accounts.json"),
		KeyBackupDir:       filepath.Join(dir, "backups"),
		KeyConnectTimeout:  "10s",
		KeyCommandTimeout:  "30s",
		KeyKeygenTimeout:   "30s",
		KeyAPITimeout:      "30s",
		KeyLogLevel:        "warn",
		KeyLogFormat:       LogFormatText,
		KeyWebhookURL:      "",
		KeySlackWebhookURL: "",
		KeySlackChannel:    "",
	}
}

// Keys returns every valid key, sorted.
func Keys() []string {
	defaults := Defaults()
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewAppResolver returns the resolver for ghswitch settings.
func NewAppResolver(globalPath string, errWriter io.Writer) *Resolver {
	return NewResolver(ResolverConfig{
		EnvPrefix:  EnvPrefix,
		GlobalPath: globalPath,
		Defaults:   Defaults(),
		ValidKeys:  Keys(),
		ErrWriter:  errWriter,
	})
}

// Load resolves settings from globalPath, the environment and flags.
func Load(globalPath string, flags map[string]string) (Settings, *Resolved, error) {
	resolved := NewAppResolver(globalPath, nil).ResolveWithFlags(flags)
	s, err := FromResolved(resolved)
	return s, resolved, err
}

// FromResolved parses resolved values into Settings.
func FromResolved(r *Resolved) (Settings, error) {
	var s Settings
	var err error

	if s.SSHDir, err = ExpandHome(r.Get(KeySSHDir)); err != nil {
		return s, err
	}
	if s.RegistryPath, err = ExpandHome(r.Get(KeyRegistryPath)); err != nil {
		return s, err
	}
	if s.BackupDir, err = ExpandHome(r.Get(KeyBackupDir)); err != nil {
		return s, err
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{KeyConnectTimeout, &s.ConnectTimeout},
		{KeyCommandTimeout, &s.CommandTimeout},
		{KeyKeygenTimeout, &s.KeygenTimeout},
		{KeyAPITimeout, &s.APITimeout},
	} {
		v, err := ParseDuration(r.Get(d.key))
		if err != nil {
			return s, fmt.Errorf("%s (from %s): %w", d.key, r.Source(d.key), err)
		}
		*d.dst = v
	}

	if s.LogLevel, err = ParseLogLevel(r.Get(KeyLogLevel)); err != nil {
		return s, fmt.Errorf("%s (from %s): %w", KeyLogLevel, r.Source(KeyLogLevel), err)
	}
	s.LogFormat = strings.ToLower(r.Get(KeyLogFormat))
	if s.LogFormat != LogFormatText && s.LogFormat != LogFormatJSON {
		return s, fmt.Errorf("%s (from %s): must be %q or %q", KeyLogFormat, r.Source(KeyLogFormat), LogFormatText, LogFormatJSON)
	}

	s.WebhookURL = r.Get(KeyWebhookURL)
	s.SlackWebhookURL = r.Get(KeySlackWebhookURL)
	s.SlackChannel = r.Get(KeySlackChannel)
	return s, nil
}

// ParseDuration accepts Go duration syntax or a whole number of seconds.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive, got %q", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", v)
	}
	return d, nil
}

// ParseLogLevel accepts debug, info, warn or error.
func ParseLogLevel(v string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", v)
	}
	return level, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ValidateValue checks a value for key before it is saved.
func ValidateValue(key, value string) error {
	switch key {
	case KeyConnectTimeout, KeyCommandTimeout, KeyKeygenTimeout, KeyAPITimeout:
		_, err := ParseDuration(value)
		return err
	case KeyLogLevel:
		_, err := ParseLogLevel(value)
		return err
	case KeyLogFormat:
		if v := strings.ToLower(value); v != LogFormatText && v != LogFormatJSON {
			return fmt.Errorf("log format must be %q or %q", LogFormatText, LogFormatJSON)
		}
	case KeyWebhookURL, KeySlackWebhookURL:
		if value != "" && !strings.HasPrefix(value, "https://") && !strings.HasPrefix(value, "http://") {
			return fmt.Errorf("%s must be an http(s) URL", key)
		}
	}
	return nil
}
