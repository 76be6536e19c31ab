// Command ghswitch manages several GitHub identities on one machine
// through per-account SSH host aliases.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	ghserrors "github.com/randalmurphal/ghswitch/errors"
)

func main() {
	os.Exit(submain(os.Args[1:], os.Stdout, os.Stderr))
}

func submain(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, renderError(ghserrors.Wrap(err)))
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout, errOut: stderr}

	root := &cobra.Command{
		Use:           "ghswitch",
		Short:         "Manage multiple GitHub accounts through SSH host aliases",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	a.bindFlags(root)

	root.AddCommand(newAccountCmd(a))
	root.AddCommand(newScanCmd(a))
	root.AddCommand(newSwitchCmd(a))
	root.AddCommand(newMapOwnerCmd(a))
	root.AddCommand(newInitRemoteCmd(a))
	root.AddCommand(newDoctorCmd(a))
	root.AddCommand(newBackupCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newTokenCmd(a))

	return root
}
