package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/apcore/internal/core"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(app *core.App) error {
				app.Logger.Info("apcore starting",
					zap.String("version", Version),
					zap.String("addr", app.Config.Server.Addr()),
				)
				return app.Server().Run(cmd.Context())
			})
		},
	}
}
