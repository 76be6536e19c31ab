package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/ghswitch/auth"
	"github.com/randalmurphal/ghswitch/dispatch"
	ghserrors "github.com/randalmurphal/ghswitch/errors"
	"github.com/randalmurphal/ghswitch/ghapi"
)

// defaultAPIHost is reported when no --api-url is given.
const defaultAPIHost = "api.github.com"

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect stored GitHub tokens",
	}
	cmd.AddCommand(newTokenCheckCmd(a))
	return cmd
}

// tokenCheck is the outcome of validating one account's token.
type tokenCheck struct {
	user *ghapi.User
	err  error
}

func newTokenCheckCmd(a *app) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "check [alias...]",
		Short: "Validate stored tokens against the GitHub API",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			snap := reg.Snapshot()
			aliases, err := selectAliases(snap, args)
			if err != nil {
				return err
			}

			opts := []ghapi.Option{ghapi.WithTimeout(a.settings.APITimeout)}
			if baseURL != "" {
				opts = append(opts, ghapi.WithBaseURL(baseURL))
			}

			withToken := 0
			for _, alias := range aliases {
				if acct, _ := snap.Account(alias); acct.HasToken() {
					withToken++
				}
			}
			if withToken == 0 {
				return ghserrors.NewNotAuthenticatedError()
			}

			loop := a.loop()
			results := make(map[string]tokenCheck, len(aliases))
			for _, alias := range aliases {
				acct, _ := snap.Account(alias)
				if !acct.HasToken() {
					continue
				}
				token := acct.Token
				dispatch.Submit(loop, cmd.Context(), dispatch.Task[*ghapi.User]{
					Name:    "token-check " + alias,
					Timeout: a.settings.APITimeout,
					Run: func(ctx context.Context) (*ghapi.User, error) {
						client, err := ghapi.New(token, opts...)
						if err != nil {
							return nil, err
						}
						return client.ValidateToken(ctx)
					},
					Done: func(user *ghapi.User, err error) {
						results[alias] = tokenCheck{user: user, err: err}
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
			for _, alias := range aliases {
				acct, _ := snap.Account(alias)
				if !acct.HasToken() {
					fmt.Fprintf(a.out, "%s  %s: no token stored\n", dimStyle.Render("skip"), alias)
					continue
				}
				res := results[alias]
				if res.err != nil {
					failed++
					if firstErr == nil {
						firstErr = res.err
					}
					fmt.Fprintf(a.out, "%s  %s (%s): %v\n", errStyle.Render("fail"), alias, auth.TokenFingerprint(acct.Token), res.err)
					continue
				}
				fmt.Fprintf(a.out, "%s  %s: token belongs to %s\n", okStyle.Render("ok"), alias, res.user.Login)
				if acct.GitHubUsername != "" && acct.GitHubUsername != res.user.Login {
					fmt.Fprintln(a.out, warnStyle.Render("      username on record is "+acct.GitHubUsername))
				}
			}
			if failed > 0 {
				return connectionFailure(firstErr, apiHost(baseURL), fmt.Errorf("%d token(s) rejected", failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "api-url", "", "GitHub API base URL (for GitHub Enterprise)")
	return cmd
}

func apiHost(baseURL string) string {
	if baseURL == "" {
		return defaultAPIHost
	}
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return baseURL
}
