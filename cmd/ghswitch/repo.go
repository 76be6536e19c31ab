package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/ghswitch/account"
	ghserrors "github.com/randalmurphal/ghswitch/errors"
	"github.com/randalmurphal/ghswitch/project"
	"github.com/randalmurphal/ghswitch/scan"
)

func newScanCmd(a *app) *cobra.Command {
	var problemsOnly bool
	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Find git repositories under root and show which account each uses",
		Long: "Find git repositories under root and show which account each uses.\n" +
			"Without root, the last scanned directory is used, then the current one.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}

			root := reg.LastScannedPath()
			if len(args) == 1 {
				root = args[0]
			}
			if root == "" {
				root = "."
			}
			if root, err = absPath(root); err != nil {
				return err
			}

			bindings, err := a.scanner().Scan(cmd.Context(), root, reg.Snapshot())
			if err != nil {
				return err
			}
			if err := reg.SetLastScannedPath(cmd.Context(), root); err != nil {
				a.logger.Warn("remember scanned path", "path", root, "error", err)
			}

			t := newTable("REPOSITORY", "STATUS", "REMOTE", "EMAIL")
			shown := 0
			for _, b := range bindings {
				if problemsOnly && b.IsBound() {
					continue
				}
				shown++
				t.Row(relTo(root, b.Path), renderBinding(b), orDash(ownerRepo(b)), b.Email)
			}

			fmt.Fprintf(a.out, "%s %s\n", heading("Scanned"), root)
			if shown == 0 {
				fmt.Fprintln(a.out, dimStyle.Render("no repositories to show"))
				return nil
			}
			fmt.Fprintln(a.out, t.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&problemsOnly, "problems", false, "only show repositories that are not bound to an account")
	return cmd
}

func renderBinding(b scan.Binding) string {
	if b.IsBound() {
		return okStyle.Render(b.Account)
	}
	if b.Status == scan.StatusError && b.Message != "" {
		return renderStatus(b.Status) + " " + dimStyle.Render(b.Message)
	}
	return renderStatus(b.Status)
}

func ownerRepo(b scan.Binding) string {
	if b.Owner == "" {
		return ""
	}
	return b.Owner + "/" + b.Repo
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func newSwitchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <alias> [repo-path]",
		Short: "Point a repository's origin and identity at an account",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			path, err := repoArg(args, 1)
			if err != nil {
				return err
			}

			res, err := a.projects(reg).Switch(cmd.Context(), path, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Switched %s to %s\n", res.Path, okStyle.Render(res.Account))
			if res.OldURL != res.NewURL {
				fmt.Fprintf(a.out, "  origin: %s\n       -> %s\n", dimStyle.Render(res.OldURL), res.NewURL)
			}
			return nil
		},
	}
}

func newMapOwnerCmd(a *app) *cobra.Command {
	var repoPath string
	cmd := &cobra.Command{
		Use:   "map-owner [owner] <alias>",
		Short: "Bind a GitHub owner to an account for HTTPS remotes",
		Long: "Bind a GitHub owner to an account so HTTPS remotes under that owner\n" +
			"are recognised. With --repo, the owner is read from the repository's origin.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("repo") {
				if len(args) != 1 {
					return errors.New("with --repo pass only the account alias")
				}
				path, err := absPath(repoPath)
				if err != nil {
					return err
				}
				owner, err := a.projects(reg).MapRepoOwner(cmd.Context(), path, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Mapped %s to %s\n", owner, args[0])
				return nil
			}

			if len(args) != 2 {
				return errors.New("pass an owner and an account alias, or --repo")
			}
			if err := reg.MapOwner(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Mapped %s to %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&repoPath, "repo", ".", "repository whose origin owner should be mapped")
	return cmd
}

func newInitRemoteCmd(a *app) *cobra.Command {
	var p project.NewProject
	var tokenStdin bool
	cmd := &cobra.Command{
		Use:   "init-remote <alias> <owner> <repo> [repo-path]",
		Short: "Configure origin and identity for a repository without a remote",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			acct, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", account.ErrNotFound, args[0])
			}
			path, err := repoArg(args, 3)
			if err != nil {
				return err
			}
			if tokenStdin {
				if p.Token, err = readSecret(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if p.CreateOnGitHub && p.Token == "" && !acct.HasToken() {
				return ghserrors.NewNotAuthenticatedError()
			}

			p.Account, p.Owner, p.Repo, p.Path = args[0], args[1], args[2], path
			res, err := a.projects(reg).ConfigureNewProject(cmd.Context(), p)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Configured %s for %s\n", res.Path, okStyle.Render(res.Account))
			fmt.Fprintf(a.out, "  origin: %s\n", res.RemoteURL)
			switch {
			case res.Created != nil:
				fmt.Fprintf(a.out, "  created %s\n", res.Created.HTMLURL)
			case res.CreateErr != nil:
				fmt.Fprintln(a.out, warnStyle.Render("  GitHub repository was not created: "+res.CreateErr.Error()))
				fmt.Fprintf(a.out, "  create it manually at https://github.com/new, then push to %s\n", p.WebURL())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&p.CreateOnGitHub, "create", false, "also create the repository on GitHub")
	cmd.Flags().BoolVar(&p.Private, "private", false, "create the GitHub repository as private")
	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "read a GitHub token from stdin instead of using the stored one")
	return cmd
}

// repoArg returns args[i] as an absolute path, or the working directory.
func repoArg(args []string, i int) (string, error) {
	if len(args) > i {
		return absPath(args[i])
	}
	return absPath(".")
}
