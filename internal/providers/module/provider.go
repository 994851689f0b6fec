// Package module lists and toggles installed modules through the apd backend.
package module

import (
	"strings"

	"github.com/GriffinCanCode/apcore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/apcore/internal/shell"
	"go.uber.org/zap"
)

// EmptyList is returned when the backend lists nothing.
const EmptyList = "[]"

// Provider runs apd module subcommands.
type Provider struct {
	exec   shell.Executor
	apd    string
	logger *logging.Logger
}

// NewProvider creates a module provider for the apd binary at apdPath.
func NewProvider(exec shell.Executor, apdPath string, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{exec: exec, apd: apdPath, logger: logger.Named("module")}
}

// List returns the backend's module listing, one entry per line, or
// EmptyList when it printed nothing.
func (p *Provider) List() string {
	res := p.exec.Run(p.command("list"))
	if !res.IsSuccess() {
		p.logger.Warn("Module list failed", zap.Int("code", res.Code), zap.Strings("stderr", res.Stderr), zap.Error(res.Cause))
	}
	out := strings.Join(res.Stdout, "\n")
	if strings.TrimSpace(out) == "" {
		return EmptyList
	}
	return out
}

// Toggle enables or disables a module.
func (p *Provider) Toggle(id string, enable bool) bool {
	action := "disable"
	if enable {
		action = "enable"
	}
	ok := p.exec.FastCmdResult(p.command(action, id))
	p.logger.Info("Module toggled", zap.String("id", id), zap.Bool("enable", enable), zap.Bool("ok", ok))
	return ok
}

// Uninstall marks a module for removal.
func (p *Provider) Uninstall(id string) bool {
	ok := p.exec.FastCmdResult(p.command("uninstall", id))
	p.logger.Info("Module uninstall", zap.String("id", id), zap.Bool("ok", ok))
	return ok
}

func (p *Provider) command(args ...string) string {
	parts := []string{shell.Quote(p.apd), "module"}
	for _, a := range args {
		parts = append(parts, shell.Quote(a))
	}
	return strings.Join(parts, " ")
}
