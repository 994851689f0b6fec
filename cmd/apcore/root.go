package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/apcore/internal/core"
	"github.com/GriffinCanCode/apcore/internal/infrastructure/config"
)

var (
	errorColor = color.New(color.FgRed)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	dev        bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "apcore",
		Short:         "Privileged session and module management core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "TOML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.dev, "dev", false, "development logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newModuleCmd(opts),
		newDetectCmd(opts),
		newNamespaceCmd(opts),
		newRebootCmd(opts),
		newAppCmd(opts),
		newStagingCmd(opts),
		newShellCmd(opts),
	)
	return cmd
}

// loadConfig layers the flags over the config file and environment.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.dev {
		cfg.Logging.Development = true
	}
	return cfg, nil
}

// withApp runs fn against a freshly built app and closes it afterwards.
func (o *globalOptions) withApp(cmd *cobra.Command, fn func(*core.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	app, err := core.New(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(app)
}

// outcome prints a green "ok" or returns an error naming the action.
func outcome(cmd *cobra.Command, ok bool, action string) error {
	if !ok {
		return fmt.Errorf("%s failed", action)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), okColor.Sprint("ok"))
	return nil
}
