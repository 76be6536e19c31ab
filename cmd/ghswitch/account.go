package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/auth"
	"github.com/randalmurphal/ghswitch/auth/ssh"
	"github.com/randalmurphal/ghswitch/config"
	"github.com/randalmurphal/ghswitch/dispatch"
	ghserrors "github.com/randalmurphal/ghswitch/errors"
	"github.com/randalmurphal/ghswitch/notify"
	"github.com/randalmurphal/ghswitch/sshconfig"
)

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts"},
		Short:   "Manage GitHub accounts",
	}

	cmd.AddCommand(newAccountAddCmd(a))
	cmd.AddCommand(newAccountListCmd(a))
	cmd.AddCommand(newAccountShowCmd(a))
	cmd.AddCommand(newAccountEditCmd(a))
	cmd.AddCommand(newAccountRemoveCmd(a))
	cmd.AddCommand(newAccountKeygenCmd(a))
	cmd.AddCommand(newAccountPubkeyCmd(a))
	cmd.AddCommand(newAccountKeysCmd(a))
	cmd.AddCommand(newAccountTestCmd(a))

	return cmd
}

func newAccountAddCmd(a *app) *cobra.Command {
	var email, keyPath, username, token string
	var tokenStdin bool
	cmd := &cobra.Command{
		Use:   "add <alias>",
		Short: "Register an account and its SSH host alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			if tokenStdin {
				if token, err = readSecret(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if token != "" {
				if err := auth.ValidateTokenFormat(token); err != nil {
					return err
				}
			}
			keyPath, err = absPath(keyPath)
			if err != nil {
				return err
			}

			acct, err := reg.Add(cmd.Context(), account.NewAccount{
				Name:           args[0],
				Email:          email,
				SSHKeyPath:     keyPath,
				GitHubUsername: username,
				Token:          token,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s (host alias %s)\n", acct.Name, okStyle.Render(acct.HostAlias()))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "commit email for this account")
	cmd.Flags().StringVar(&keyPath, "key", "", "path to the SSH private key")
	cmd.Flags().StringVar(&username, "username", "", "GitHub username (optional)")
	cmd.Flags().StringVar(&token, "token", "", "GitHub personal access token (optional)")
	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "read the token from stdin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newAccountListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			accts := reg.Accounts()
			if len(accts) == 0 {
				fmt.Fprintln(a.out, "No accounts configured. Add one with 'ghswitch account add'.")
				return nil
			}

			t := newTable("ALIAS", "EMAIL", "USERNAME", "KEY", "TOKEN")
			for _, acct := range accts {
				t.Row(acct.Name, acct.Email, orDash(acct.GitHubUsername), acct.SSHKeyPath, orDash(auth.MaskToken(acct.Token)))
			}
			fmt.Fprintln(a.out, t.String())
			return nil
		},
	}
}

func newAccountShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <alias>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			acct, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", account.ErrNotFound, args[0])
			}

			fmt.Fprintln(a.out, heading(acct.Name))
			fmt.Fprintf(a.out, "  Host alias:  %s\n", acct.HostAlias())
			fmt.Fprintf(a.out, "  Email:       %s\n", acct.Email)
			fmt.Fprintf(a.out, "  Username:    %s\n", orDash(acct.GitHubUsername))
			fmt.Fprintf(a.out, "  SSH key:     %s\n", acct.SSHKeyPath)
			if info, err := ssh.ReadPublicKey(acct.PublicKeyPath()); err == nil {
				fmt.Fprintf(a.out, "  Fingerprint: %s (%s)\n", info.Fingerprint, info.KeyType)
			} else {
				fmt.Fprintf(a.out, "  Fingerprint: %s\n", warnStyle.Render("public key unreadable"))
			}
			if acct.HasToken() {
				fmt.Fprintf(a.out, "  Token:       %s %s\n", auth.MaskToken(acct.Token), dimStyle.Render(string(auth.Kind(acct.Token))))
			} else {
				fmt.Fprintf(a.out, "  Token:       -\n")
			}

			var owners []string
			for owner, alias := range reg.Snapshot().Owners() {
				if alias == acct.Name {
					owners = append(owners, owner)
				}
			}
			sort.Strings(owners)
			fmt.Fprintf(a.out, "  Owners:      %s\n", orDash(strings.Join(owners, ", ")))
			return nil
		},
	}
}

func newAccountEditCmd(a *app) *cobra.Command {
	var email, username, token string
	var tokenStdin bool
	cmd := &cobra.Command{
		Use:   "edit <alias>",
		Short: "Change an account's email, username or token",
		Long:  "Change an account's email, username or token. Pass an empty value to clear the username or token.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}

			var u account.Update
			if cmd.Flags().Changed("email") {
				u.Email = &email
			}
			if cmd.Flags().Changed("username") {
				u.GitHubUsername = &username
			}
			if tokenStdin {
				if token, err = readSecret(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if tokenStdin || cmd.Flags().Changed("token") {
				if token != "" {
					if err := auth.ValidateTokenFormat(token); err != nil {
						return err
					}
				}
				u.Token = &token
			}
			if u.Email == nil && u.GitHubUsername == nil && u.Token == nil {
				return errors.New("nothing to change: pass --email, --username or --token")
			}

			acct, err := reg.Update(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %s\n", acct.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "new commit email")
	cmd.Flags().StringVar(&username, "username", "", "new GitHub username")
	cmd.Flags().StringVar(&token, "token", "", "new GitHub token")
	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "read the new token from stdin")
	return cmd
}

func newAccountRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <alias>",
		Aliases: []string{"rm"},
		Short:   "Remove an account and its SSH host block",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			if err := reg.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s\n", args[0])
			return nil
		},
	}
}

func newAccountKeygenCmd(a *app) *cobra.Command {
	var email, passphrase string
	cmd := &cobra.Command{
		Use:   "keygen <key-name>",
		Short: "Generate an ed25519 key pair in the SSH directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if name != filepath.Base(name) || strings.HasSuffix(name, ".pub") {
				return &account.FieldError{Field: "key name", Value: name, Reason: "must be a plain file name"}
			}
			if err := account.ValidateEmail(email); err != nil {
				return err
			}

			path := filepath.Join(a.settings.SSHDir, name)
			tools := a.tools()
			ctx := cmd.Context()
			if err := tools.GenerateKey(ctx, ssh.KeygenRequest{Path: path, Email: email, Passphrase: passphrase}); err != nil {
				return err
			}
			ev := notify.NewEvent(notify.EventKeyGenerated, "", "generated "+path)
			if err := notify.Send(ctx, ev); err != nil {
				a.logger.Warn("notification failed", "event", ev.Type, "error", err)
			}

			fmt.Fprintf(a.out, "Generated %s\n", path)
			if err := tools.AddToAgent(ctx, path); err != nil {
				fmt.Fprintln(a.out, warnStyle.Render("Could not add the key to ssh-agent; run 'ssh-add "+path+"' manually."))
			}

			info, err := ssh.ReadPublicKey(path + ".pub")
			if err != nil {
				return fmt.Errorf("read generated public key: %w", err)
			}
			fmt.Fprintln(a.out, "\nAdd this public key to your GitHub account:")
			fmt.Fprintln(a.out, info.PublicKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "comment for the key, usually the account email")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "key passphrase (empty for none)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAccountPubkeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pubkey <alias>",
		Short: "Print an account's public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			acct, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", account.ErrNotFound, args[0])
			}
			info, err := ssh.ReadPublicKey(acct.PublicKeyPath())
			if err != nil {
				return fmt.Errorf("read public key: %w", err)
			}
			fmt.Fprintln(a.out, info.PublicKey)
			return nil
		},
	}
}

func newAccountKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List private keys in the SSH directory and the accounts using them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			pairs, err := ssh.DiscoverKeyPairs(a.settings.SSHDir)
			if errors.Is(err, ssh.ErrNoSSHKeys) {
				fmt.Fprintln(a.out, "No SSH keys found in "+a.settings.SSHDir)
				return nil
			}
			if err != nil {
				return err
			}

			t := newTable("KEY", "ACCOUNT", "FINGERPRINT")
			for _, pair := range pairs {
				alias, _ := reg.ResolveByKeyPath(pair.PrivatePath)
				fingerprint := ""
				if pair.Public != nil {
					fingerprint = pair.Public.Fingerprint
				}
				t.Row(pair.PrivatePath, orDash(alias), orDash(fingerprint))
			}
			fmt.Fprintln(a.out, t.String())
			return nil
		},
	}
}

func newAccountTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test [alias...]",
		Short: "Test SSH authentication to GitHub for accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			aliases, err := selectAliases(reg.Snapshot(), args)
			if err != nil {
				return err
			}

			tools := a.tools()
			loop := a.loop()
			results := make(map[string]ssh.ConnResult, len(aliases))
			for _, alias := range aliases {
				dispatch.Submit(loop, cmd.Context(), dispatch.Task[ssh.ConnResult]{
					Name: "ssh-test " + alias,
					Run: func(ctx context.Context) (ssh.ConnResult, error) {
						return tools.TestConnection(ctx, alias), nil
					},
					Done: func(res ssh.ConnResult, _ error) {
						results[alias] = res
					},
				})
			}
			if err := loop.Wait(cmd.Context()); err != nil {
				return err
			}
			// Results for a cancelled command are discarded, not delivered.
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			failed := 0
			var firstErr error
			var firstHost string
			for _, alias := range aliases {
				res := results[alias]
				if res.Status != ssh.ConnAuthenticated && firstErr == nil {
					firstErr, firstHost = res.Err, sshconfig.HostAlias(alias)
				}
				switch res.Status {
				case ssh.ConnAuthenticated:
					fmt.Fprintf(a.out, "%s  %s as %s\n", okStyle.Render("ok"), alias, res.Username)
				case ssh.ConnTimeout:
					failed++
					fmt.Fprintf(a.out, "%s  %s: connection timed out\n", errStyle.Render("fail"), alias)
				default:
					failed++
					fmt.Fprintf(a.out, "%s  %s: %s\n", errStyle.Render("fail"), alias, firstLine(res.Output))
				}
			}
			if failed > 0 {
				return connectionFailure(firstErr, firstHost,
					fmt.Errorf("%d of %d accounts failed to authenticate", failed, len(aliases)))
			}
			return nil
		},
	}
}

// connectionFailure returns connection guidance for host when err is a
// connectivity problem, and fallback otherwise.
func connectionFailure(err error, host string, fallback error) error {
	if ghserrors.IsConnectionError(err) {
		return ghserrors.WrapConnectionError(err, host)
	}
	return fallback
}

// selectAliases returns args, or every account when args is empty.
func selectAliases(snap account.Snapshot, args []string) ([]string, error) {
	if len(args) == 0 {
		var aliases []string
		for _, acct := range snap.Accounts() {
			aliases = append(aliases, acct.Name)
		}
		if len(aliases) == 0 {
			return nil, errors.New("no accounts configured")
		}
		return aliases, nil
	}
	for _, alias := range args {
		if !snap.Has(alias) {
			return nil, fmt.Errorf("%w: %s", account.ErrNotFound, alias)
		}
	}
	return args, nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func absPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := config.ExpandHome(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "no response"
	}
	return s
}
