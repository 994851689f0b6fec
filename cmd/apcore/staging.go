package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/apcore/internal/core"
)

func newStagingCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage install staging directories",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove staging directories left by failed installs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(app *core.App) error {
				removed, err := app.Installer.PruneStaging(olderThan)
				for _, p := range removed {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return err
			})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "minimum age of removed directories")
	cmd.AddCommand(prune)
	return cmd
}
