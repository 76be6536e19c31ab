package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/moby/sys/atomicwriter"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/ghswitch/account"
	"github.com/randalmurphal/ghswitch/validate"
)

func newDoctorCmd(a *app) *cobra.Command {
	var fix, offline, verbose bool
	var export string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the SSH setup, keys and connectivity of every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			v := a.validator(offline)
			ctx := cmd.Context()

			if export != "" {
				return exportReport(ctx, a, v, reg, export)
			}

			findings := v.ValidateAll(ctx, reg.Snapshot())
			printFindings(a, findings, verbose)

			if fix {
				results := v.AutoFixAll(ctx, findings)
				if len(results) == 0 {
					fmt.Fprintln(a.out, dimStyle.Render("\nNothing can be fixed automatically."))
				} else {
					fmt.Fprintln(a.out, "\n"+heading("Fixes"))
					for _, r := range results {
						style := okStyle
						if !r.Fixed {
							style = errStyle
						}
						fmt.Fprintf(a.out, "  %s\n", style.Render(r.Message))
					}
					fmt.Fprintf(a.out, "%d of %d fixed. Re-checking...\n\n", validate.CountFixed(results), len(results))
					findings = v.ValidateAll(ctx, reg.Snapshot())
					printFindings(a, findings, verbose)
				}
			}

			sum := validate.Summarize(findings)
			fmt.Fprintf(a.out, "\n%d passed, %d warnings, %d errors\n", sum.Passed, sum.Warnings, sum.Errors)
			if sum.Errors > 0 {
				return fmt.Errorf("%d configuration errors found", sum.Errors)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "apply automatic fixes for directory, key and agent problems")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the GitHub connectivity tests")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also show passing checks")
	cmd.Flags().StringVar(&export, "export", "", "write a debug report to this file instead of printing findings")
	return cmd
}

// exportReport writes the troubleshooting report to path with mode 0600.
// Tokens appear only as fingerprints.
func exportReport(ctx context.Context, a *app, v *validate.Validator, reg *account.Registry, path string) error {
	rep := v.Collect(ctx, validate.ReportInput{
		Snapshot:        reg.Snapshot(),
		LastScannedPath: reg.LastScannedPath(),
		Paths: []validate.PathEntry{
			{Label: "Registry", Path: a.settings.RegistryPath},
			{Label: "Backups", Path: a.settings.BackupDir},
			{Label: "Config file", Path: a.configPath},
		},
	})

	var buf bytes.Buffer
	if _, err := rep.WriteTo(&buf); err != nil {
		return err
	}
	if err := atomicwriter.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write debug report %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "Debug information written to %s\n", path)
	return nil
}
