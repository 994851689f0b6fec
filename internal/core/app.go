// Package core wires configuration, sessions, providers and the installer
// into one App shared by the CLI and the control API.
package core

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/apcore/internal/infrastructure/config"
	"github.com/GriffinCanCode/apcore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/apcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/apcore/internal/installer"
	"github.com/GriffinCanCode/apcore/internal/providers/module"
	"github.com/GriffinCanCode/apcore/internal/providers/system"
	"github.com/GriffinCanCode/apcore/internal/server"
	"github.com/GriffinCanCode/apcore/internal/shell"
	"go.uber.org/zap"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
	Strategy  *shell.Strategy
	Sessions  *shell.Manager
	Modules   *module.Provider
	System    *system.Provider
	Installer *installer.Installer
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LogConfig) (*logging.Logger, error) {
	base := logging.DefaultConfig()
	if cfg.Development {
		base = logging.DevelopmentConfig()
	}
	if cfg.Level != "" {
		base.Level = cfg.Level
	}
	logger, err := logging.New(base)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// New builds every component and acquires the initial session. A nil logger
// is built from cfg.Logging.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("core: nil config")
	}
	if logger == nil {
		var err error
		if logger, err = NewLogger(cfg.Logging); err != nil {
			return nil, err
		}
	}

	metrics := monitoring.NewMetrics()
	strategy := shell.NewStrategy(shell.StrategyConfig{
		SuperCmd:         cfg.Elevation.SuperCmd,
		SuperKey:         cfg.Elevation.SuperKey,
		SContext:         cfg.Elevation.SContext,
		NativeLibDir:     cfg.Elevation.NativeLibDir,
		HandshakeTimeout: cfg.Elevation.HandshakeTimeout.Duration,
	}, logger, metrics)

	sessions := shell.NewManager(ctx, strategy, logger, metrics)
	s := sessions.Get()
	logger.Info("Session ready",
		zap.String("session", s.ID().String()),
		zap.String("mechanism", s.Mechanism().Name),
		zap.Bool("privileged", s.IsPrivileged()),
	)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Strategy: strategy,
		Sessions: sessions,
		Modules:  module.NewProvider(sessions, cfg.Device.APDPath, logger),
		System:   system.NewProvider(sessions, sessions, cfg.Device.GlobalNamespaceFile, logger),
		Installer: installer.New(installer.Config{
			APDPath:     cfg.Device.APDPath,
			KPMSDir:     cfg.Device.KPMSDir,
			CacheDir:    cfg.Installer.CacheDir,
			StagingRoot: cfg.Installer.StagingRoot,
		}, sessions, logger, metrics),
	}
	return app, nil
}

// ServerDeps exposes the components served by the control API.
func (a *App) ServerDeps() server.Deps {
	return server.Deps{
		Sessions:  a.Sessions,
		Modules:   a.Modules,
		System:    a.System,
		Installer: a.Installer,
	}
}

// Server builds the control API over this app.
func (a *App) Server() *server.Server {
	return server.New(a.ServerDeps(), a.Config, a.Logger, a.Metrics)
}

// Close releases the current session and flushes the logger.
func (a *App) Close() error {
	err := a.Sessions.Close()
	_ = a.Logger.Sync()
	return err
}
