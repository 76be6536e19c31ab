package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore accounts, the SSH config and keys",
	}
	cmd.AddCommand(newBackupCreateCmd(a))
	cmd.AddCommand(newBackupListCmd(a))
	cmd.AddCommand(newBackupRestoreCmd(a))
	cmd.AddCommand(newBackupResetCmd(a))
	return cmd
}

func newBackupCreateCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			info, err := a.backups().Create(cmd.Context(), description, reg.Snapshot())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created backup %s (%d accounts, %d key files)\n",
				okStyle.Render(info.ID), info.Accounts, len(info.Keys))
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "message", "m", "Manual backup", "description stored with the backup")
	return cmd
}

func newBackupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := a.backups().List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintln(a.out, "No backups yet.")
				return nil
			}
			t := newTable("ID", "CREATED", "ACCOUNTS", "DESCRIPTION")
			for _, info := range infos {
				t.Row(info.ID, info.CreatedAt.Local().Format(time.DateTime), fmt.Sprint(info.Accounts), info.Description)
			}
			fmt.Fprintln(a.out, t.String())
			return nil
		},
	}
}

func newBackupRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id|prefix|latest>",
		Short: "Restore a backup, saving the current state first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			info, err := a.backups().Restore(cmd.Context(), args[0], reg.Snapshot())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Restored backup %s from %s\n", okStyle.Render(info.ID), info.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintln(a.out, dimStyle.Render("The previous state was saved as a \"Before restore\" backup."))
			return nil
		},
	}
}

func newBackupResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Back up, then forget every account and move the SSH config aside",
		Long: "Back up the current state, then clear all accounts, owner mappings and\n" +
			"the last scanned path, and move the SSH config to <config>.backup.\n" +
			"SSH keys are kept. Undo with 'ghswitch backup restore latest'.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset removes every account; re-run with --yes to confirm")
			}
			reg, err := a.accounts()
			if err != nil {
				return err
			}
			res, err := a.backups().Reset(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Reset complete. Previous state saved as backup %s\n", okStyle.Render(res.Backup.ID))
			if res.SSHConfigAside != "" {
				fmt.Fprintf(a.out, "SSH config moved to %s\n", res.SSHConfigAside)
			}
			fmt.Fprintln(a.out, dimStyle.Render("SSH keys were kept. Re-add accounts with 'ghswitch account add'."))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
