// Package system checks device capabilities and performs device-level
// actions: app restarts, reboots and the global mount namespace flag.
package system

import (
	"runtime"
	"strings"
	"time"

	"github.com/GriffinCanCode/apcore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/apcore/internal/shell"
	"go.uber.org/zap"
)

// Elevation reports whether the current session is root.
type Elevation interface {
	IsPrivileged() bool
}

// Provider implements system checks and actions
type Provider struct {
	exec          shell.Executor
	elevation     Elevation
	namespaceFile string
	logger        *logging.Logger
	startTime     time.Time
}

// Capabilities is the result of all checks.
type Capabilities struct {
	Root            bool `json:"root"`
	OverlayFS       bool `json:"overlayfs"`
	Magisk          bool `json:"magisk"`
	GlobalNamespace bool `json:"global_namespace"`
}

// HostInfo describes the running process.
type HostInfo struct {
	GoVersion     string  `json:"go_version"`
	OS            string  `json:"os"`
	Arch          string  `json:"arch"`
	CPUs          int     `json:"cpus"`
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB uint64  `json:"memory_alloc_mb"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewProvider creates a system provider
func NewProvider(exec shell.Executor, elevation Elevation, namespaceFile string, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{
		exec:          exec,
		elevation:     elevation,
		namespaceFile: namespaceFile,
		logger:        logger.Named("system"),
		startTime:     time.Now(),
	}
}

// RootAvailable reports whether the current session is privileged.
func (s *Provider) RootAvailable() bool {
	return s.elevation.IsPrivileged()
}

// GlobalNamespaceEnabled reads the namespace flag file.
func (s *Provider) GlobalNamespaceEnabled() bool {
	return strings.TrimSpace(s.exec.FastCmd("cat "+shell.Quote(s.namespaceFile))) == "1"
}

// SetGlobalNamespaceEnabled writes the flag file in the background. The
// outcome is only logged.
func (s *Provider) SetGlobalNamespaceEnabled(enabled bool) {
	s.exec.Submit(func(res shell.Result) {
		s.logNamespace(enabled, res)
	}, s.namespaceCommand(enabled))
}

// WriteGlobalNamespace writes the flag file and waits for the outcome.
func (s *Provider) WriteGlobalNamespace(enabled bool) bool {
	res := s.exec.Run(s.namespaceCommand(enabled))
	s.logNamespace(enabled, res)
	return res.IsSuccess()
}

func (s *Provider) namespaceCommand(enabled bool) string {
	value := "0"
	if enabled {
		value = "1"
	}
	return "echo " + value + " > " + shell.Quote(s.namespaceFile)
}

func (s *Provider) logNamespace(enabled bool, res shell.Result) {
	s.logger.Info("Global namespace updated",
		zap.Bool("enabled", enabled),
		zap.Bool("ok", res.IsSuccess()),
		zap.Strings("stdout", res.Stdout),
		zap.Strings("stderr", res.Stderr),
		zap.Error(res.Cause))
}

// HasMagisk reports whether magisk is on PATH in the init mount namespace.
func (s *Provider) HasMagisk() bool {
	ok := s.exec.FastCmdResult("nsenter --mount=/proc/1/ns/mnt which magisk")
	s.logger.Debug("Magisk check", zap.Bool("found", ok))
	return ok
}

// OverlayFSAvailable reports whether the kernel supports overlayfs.
func (s *Provider) OverlayFSAvailable() bool {
	ok := s.exec.FastCmdResult("cat /proc/filesystems | grep overlay")
	s.logger.Debug("OverlayFS check", zap.Bool("available", ok))
	return ok
}

// Check runs every capability check.
func (s *Provider) Check() Capabilities {
	return Capabilities{
		Root:            s.RootAvailable(),
		OverlayFS:       s.OverlayFSAvailable(),
		Magisk:          s.HasMagisk(),
		GlobalNamespace: s.GlobalNamespaceEnabled(),
	}
}

// ForceStopApp stops every process of the package.
func (s *Provider) ForceStopApp(pkg string) bool {
	res := s.exec.Run("am force-stop " + shell.Quote(pkg))
	s.logAction("force-stop", pkg, res)
	return res.IsSuccess()
}

// LaunchApp starts the package's launcher activity.
func (s *Provider) LaunchApp(pkg string) bool {
	res := s.exec.Run("monkey -p " + shell.Quote(pkg) + " -c android.intent.category.LAUNCHER 1")
	s.logAction("launch", pkg, res)
	return res.IsSuccess()
}

// RestartApp stops then launches the package. A failed launch is not rolled back.
func (s *Provider) RestartApp(pkg string) bool {
	s.ForceStopApp(pkg)
	return s.LaunchApp(pkg)
}

// Reboot restarts the device, optionally into a target such as "recovery"
// or "bootloader".
func (s *Provider) Reboot(reason string) bool {
	if reason == "recovery" {
		// KEYCODE_POWER: recovery reboots are ignored while the screen is off on some devices.
		s.exec.FastCmd("/system/bin/input keyevent 26")
	}
	arg := ""
	if reason != "" {
		arg = " " + shell.Quote(reason)
	}
	ok := s.exec.FastCmdResult("/system/bin/svc power reboot" + arg + " || /system/bin/reboot" + arg)
	s.logger.Info("Reboot requested", zap.String("reason", reason), zap.Bool("ok", ok))
	return ok
}

// Info returns process information.
func (s *Provider) Info() HostInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return HostInfo{
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		CPUs:          runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: m.Alloc / 1024 / 1024,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	}
}

func (s *Provider) logAction(action, pkg string, res shell.Result) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("package", pkg),
		zap.Bool("ok", res.IsSuccess()),
	}
	if !res.IsSuccess() {
		fields = append(fields, zap.Int("code", res.Code), zap.Strings("stderr", res.Stderr), zap.Error(res.Cause))
	}
	s.logger.Info("App action", fields...)
}
