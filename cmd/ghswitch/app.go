package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/auth/ssh"
	"github.com/randalmurphal/ghswitch/backup"
	"github.com/randalmurphal/ghswitch/config"
	"github.com/randalmurphal/ghswitch/dispatch"
	"github.com/randalmurphal/ghswitch/ghapi"
	"github.com/randalmurphal/ghswitch/notify"
	"github.com/randalmurphal/ghswitch/project"
	"github.com/randalmurphal/ghswitch/runner"
	"github.com/randalmurphal/ghswitch/scan"
	"github.com/randalmurphal/ghswitch/sshconfig"
	"github.com/randalmurphal/ghswitch/validate"
)

// flagKeys maps persistent flags onto setting keys.
var flagKeys = map[string]string{
	"ssh-dir":    config.KeySSHDir,
	"registry":   config.KeyRegistryPath,
	"backup-dir": config.KeyBackupDir,
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
}

// app carries everything a command needs once settings are resolved.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	flagValues map[string]*string

	settings config.Settings
	resolved *config.Resolved
	logger   *slog.Logger
	runner   runner.CommandRunner
	hosts    *sshconfig.File

	registry *account.Registry
}

func (a *app) bindFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultGlobalPath(), "path to the ghswitch config file")

	a.flagValues = make(map[string]*string, len(flagKeys))
	for name, key := range flagKeys {
		a.flagValues[name] = pf.String(name, "", "override the "+key+" setting")
	}
}

// setup resolves settings and builds the shared collaborators. It runs
// before every command.
func (a *app) setup(cmd *cobra.Command) error {
	flags := make(map[string]string)
	for name, key := range flagKeys {
		if cmd.Flags().Changed(name) {
			flags[key] = *a.flagValues[name]
		}
	}

	a.resolved = config.NewAppResolver(a.configPath, a.errOut).ResolveWithFlags(flags)
	settings, err := config.FromResolved(a.resolved)
	if err != nil {
		if !toleratesBadSettings(cmd) {
			return fmt.Errorf("load settings: %w", err)
		}
		// config commands must still run so the bad value can be fixed.
		fmt.Fprintf(a.errOut, "warning: %v; using defaults\n", err)
		defaults := config.NewResolver(config.ResolverConfig{Defaults: config.Defaults()}).Resolve()
		if settings, err = config.FromResolved(defaults); err != nil {
			return fmt.Errorf("load default settings: %w", err)
		}
	}
	a.settings = settings
	a.logger = newLogger(a.errOut, settings)
	// Nothing ghswitch runs may stop to ask for a password.
	a.runner = runner.NewExecRunner(
		runner.WithTimeout(settings.CommandTimeout),
		runner.WithEnv("GIT_TERMINAL_PROMPT=0"),
	)
	a.hosts = sshconfig.NewFile(settings.SSHConfigPath())

	cmd.SetContext(notify.WithNotifier(cmd.Context(), newNotifier(settings, a.logger)))
	return nil
}

const tolerateBadSettings = "tolerate-bad-settings"

func toleratesBadSettings(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[tolerateBadSettings] == "true" {
			return true
		}
	}
	return false
}

func newLogger(w io.Writer, s config.Settings) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.LogLevel}
	if s.LogFormat == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newNotifier always logs events and fans out to the configured webhooks.
func newNotifier(s config.Settings, logger *slog.Logger) notify.Notifier {
	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	if s.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(s.WebhookURL, nil))
	}
	if s.SlackWebhookURL != "" {
		var opts []notify.SlackOption
		if s.SlackChannel != "" {
			opts = append(opts, notify.WithSlackChannel(s.SlackChannel))
		}
		notifiers = append(notifiers, notify.NewSlackNotifier(s.SlackWebhookURL, opts...))
	}
	return notify.NewFanout(notifiers...)
}

// accounts opens the registry on first use.
func (a *app) accounts() (*account.Registry, error) {
	if a.registry != nil {
		return a.registry, nil
	}
	reg, err := account.Open(a.settings.RegistryPath, a.hosts, account.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.registry = reg
	return reg, nil
}

func (a *app) tools() *ssh.Tools {
	return ssh.NewTools(a.runner,
		ssh.WithLogger(a.logger),
		ssh.WithKeygenTimeout(a.settings.KeygenTimeout),
		ssh.WithConnectTimeout(a.settings.ConnectTimeout),
	)
}

func (a *app) scanner() *scan.Scanner {
	return scan.NewScanner(scan.WithRunner(a.runner), scan.WithLogger(a.logger))
}

func (a *app) validator(skipConnectivity bool) *validate.Validator {
	tools := a.tools()
	return validate.New(a.settings.SSHDir, a.hosts,
		validate.WithRunner(a.runner),
		validate.WithConnectionTester(tools),
		validate.WithKeyLoader(tools),
		validate.WithSkipConnectivity(skipConnectivity),
		validate.WithLogger(a.logger),
	)
}

func (a *app) projects(reg *account.Registry) *project.Service {
	timeout := a.settings.APITimeout
	return project.NewService(reg,
		project.WithRunner(a.runner),
		project.WithLogger(a.logger),
		project.WithCreatorFactory(func(token string) (project.RepoCreator, error) {
			client, err := ghapi.New(token, ghapi.WithTimeout(timeout))
			if err != nil {
				return nil, err
			}
			return client, nil
		}),
	)
}

func (a *app) backups() *backup.Manager {
	return backup.NewManager(a.settings.BackupDir, a.settings.RegistryPath, a.hosts.Path(),
		backup.WithLogger(a.logger))
}

// loop runs slow checks off the command goroutine. Results are delivered
// back on it through Wait.
func (a *app) loop() *dispatch.Loop {
	return dispatch.NewLoop(
		dispatch.WithTimeout(a.settings.ConnectTimeout+a.settings.APITimeout),
		dispatch.WithLogger(a.logger),
	)
}
