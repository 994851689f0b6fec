package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/apcore/internal/core"
	"github.com/GriffinCanCode/apcore/internal/installer"
)

func newModuleCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "List, toggle, uninstall and install modules",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print the module list as reported by the backend",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd, func(app *core.App) error {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), app.Modules.List())
					return nil
				})
			},
		},
		newToggleCmd(opts, "enable", true),
		newToggleCmd(opts, "disable", false),
		&cobra.Command{
			Use:   "uninstall <id>",
			Short: "Mark a module for removal",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd, func(app *core.App) error {
					return outcome(cmd, app.Modules.Uninstall(args[0]), "uninstall "+args[0])
				})
			},
		},
		newInstallCmd(opts),
	)
	return cmd
}

func newToggleCmd(opts *globalOptions, verb string, enable bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(app *core.App) error {
				return outcome(cmd, app.Modules.Toggle(args[0], enable), verb+" "+args[0])
			})
		},
	}
}

func newInstallCmd(opts *globalOptions) *cobra.Command {
	var kindFlag string
	cmd := &cobra.Command{
		Use:   "install <file>",
		Short: "Install a module package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := installer.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return opts.withApp(cmd, func(app *core.App) error {
				out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
				ok := app.Installer.Install(cmd.Context(), f, kind, installer.Funcs{
					Stdout: func(line string) { _, _ = fmt.Fprintln(out, line) },
					Stderr: func(line string) { _, _ = fmt.Fprintln(errOut, errorColor.Sprint(line)) },
				})
				return outcome(cmd, ok, "install "+args[0])
			})
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", installer.KindAPM.String(), "package kind (APM or KPM)")
	return cmd
}
