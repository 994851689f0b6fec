package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/apcore/internal/console"
	"github.com/GriffinCanCode/apcore/internal/core"
)

func newShellCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive shell with the current elevation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(app *core.App) error {
				return console.New(app.Sessions.Get().Mechanism(), app.Logger).
					WithIO(cmd.InOrStdin(), cmd.OutOrStdout()).
					Run(cmd.Context())
			})
		},
	}
}
