package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/apcore/internal/core"
)

func newDetectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Report elevation and device capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(app *core.App) error {
				session := app.Strategy.Detect(cmd.Context())
				defer func() { _ = session.Close() }()
				caps := app.System.Check()

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintf(w, "session\t%s\t%s\n", app.Sessions.Get().Mechanism().Name, yesNo(app.Sessions.IsPrivileged()))
				_, _ = fmt.Fprintf(w, "detected\t%s\t%s\n", session.Mechanism().Name, yesNo(session.IsPrivileged()))
				_, _ = fmt.Fprintf(w, "overlayfs\t%s\n", yesNo(caps.OverlayFS))
				_, _ = fmt.Fprintf(w, "magisk\t%s\n", yesNo(caps.Magisk))
				_, _ = fmt.Fprintf(w, "global namespace\t%s\n", yesNo(caps.GlobalNamespace))
				return w.Flush()
			})
		},
	}
}

func newNamespaceCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "namespace [on|off]",
		Short:     "Show or set global namespace mounting",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(app *core.App) error {
				if len(args) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), onOff(app.System.GlobalNamespaceEnabled()))
					return nil
				}
				return outcome(cmd, app.System.WriteGlobalNamespace(args[0] == "on"), "namespace "+args[0])
			})
		},
	}
}

func newRebootCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reboot [reason]",
		Short: "Reboot the device, optionally into recovery or bootloader",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason := strings.Join(args, "")
			return opts.withApp(cmd, func(app *core.App) error {
				return outcome(cmd, app.System.Reboot(reason), "reboot")
			})
		},
	}
}

func newAppCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Manage Android apps",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "restart <package>",
		Short: "Force-stop and relaunch an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(app *core.App) error {
				return outcome(cmd, app.System.RestartApp(args[0]), "restart "+args[0])
			})
		},
	})
	return cmd
}

func yesNo(b bool) string {
	if b {
		return okColor.Sprint("yes")
	}
	return warnColor.Sprint("no")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
