package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/ghswitch/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Read and change ghswitch settings",
		Annotations: map[string]string{tolerateBadSettings: "true"},
	}
	cmd.AddCommand(newConfigGetCmd(a))
	cmd.AddCommand(newConfigSetCmd(a))
	cmd.AddCommand(newConfigUnsetCmd(a))
	cmd.AddCommand(newConfigListCmd(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(a.out, a.configPath)
			return nil
		},
	})
	return cmd
}

func checkKey(key string) error {
	if slices.Contains(config.Keys(), key) {
		return nil
	}
	return fmt.Errorf("unknown setting %q", key)
}

func newConfigGetCmd(a *app) *cobra.Command {
	var showSource bool
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting's effective value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkKey(args[0]); err != nil {
				return err
			}
			value, source := a.resolved.GetWithSource(args[0])
			if showSource {
				fmt.Fprintf(a.out, "%s %s\n", value, dimStyle.Render("("+string(source)+")"))
				return nil
			}
			fmt.Fprintln(a.out, value)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSource, "source", false, "also print where the value came from")
	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save a setting to the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.AppSaveConfig(a.configPath).SaveGlobal(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Set %s = %s\n", args[0], args[1])
			if a.resolved.Source(args[0]) == config.SourceEnv {
				env := config.EnvName(config.EnvPrefix, args[0])
				fmt.Fprintln(a.out, warnStyle.Render(env+" is set and takes precedence"))
			}
			return nil
		},
	}
}

func newConfigUnsetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a setting from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.AppSaveConfig(a.configPath).DeleteGlobalKey(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Unset %s\n", args[0])
			return nil
		},
	}
}

func newConfigListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every setting with its value and source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := newTable("KEY", "VALUE", "SOURCE")
			for _, key := range config.Keys() {
				value, source := a.resolved.GetWithSource(key)
				t.Row(key, orDash(value), string(source))
			}
			fmt.Fprintln(a.out, t.String())
			return nil
		},
	}
}
