package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/apcore/internal/shared/paths"
)

// EnvPrefix prefixes every environment variable, e.g. APCORE_SUPERKEY.
const EnvPrefix = "APCORE"

// Config holds all application configuration.
type Config struct {
	Elevation ElevationConfig `toml:"elevation"`
	Device    DeviceConfig    `toml:"device"`
	Installer InstallerConfig `toml:"installer"`
	Server    ServerConfig    `toml:"server"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ElevationConfig holds the inputs of the session acquisition chain.
type ElevationConfig struct {
	SuperKey         string   `envconfig:"SUPERKEY" toml:"superkey"`
	SContext         string   `envconfig:"SCONTEXT" toml:"scontext"`
	SuperCmd         string   `envconfig:"SUPERCMD" toml:"supercmd"`
	NativeLibDir     string   `envconfig:"NATIVE_LIB_DIR" toml:"native_lib_dir"`
	HandshakeTimeout Duration `envconfig:"HANDSHAKE_TIMEOUT" toml:"handshake_timeout"`
}

// DeviceConfig holds privileged filesystem touchpoints.
type DeviceConfig struct {
	APDPath             string `envconfig:"APD_PATH" toml:"apd_path"`
	KPMSDir             string `envconfig:"KPMS_DIR" toml:"kpms_dir"`
	GlobalNamespaceFile string `envconfig:"GLOBAL_NAMESPACE_FILE" toml:"global_namespace_file"`
}

// InstallerConfig holds local work areas of the install pipeline.
type InstallerConfig struct {
	CacheDir    string `envconfig:"CACHE_DIR" toml:"cache_dir"`
	StagingRoot string `envconfig:"STAGING_ROOT" toml:"staging_root"`
}

// ServerConfig holds control API configuration.
type ServerConfig struct {
	Host string `envconfig:"API_HOST" toml:"host"`
	Port string `envconfig:"API_PORT" toml:"port"`
	// Token, when set, must be sent as a bearer token on every request.
	Token           string `envconfig:"API_TOKEN" toml:"token"`
	MaxPackageBytes int64  `envconfig:"MAX_PACKAGE_BYTES" toml:"max_package_bytes"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled"`
}

// Duration is a time.Duration that decodes from "20s"-style text in both
// TOML and the environment.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Addr returns the listen address of the control API.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Load layers configuration: defaults, then the TOML file at path (if path is
// non-empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Sections are processed one by one so variables read APCORE_SUPERKEY
	// rather than APCORE_ELEVATION_SUPERKEY.
	sections := []interface{}{
		&cfg.Elevation, &cfg.Device, &cfg.Installer,
		&cfg.Server, &cfg.Logging, &cfg.RateLimit,
	}
	for _, section := range sections {
		if err := envconfig.Process(EnvPrefix, section); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load("")
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects configurations the core cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Elevation.SuperCmd == "" {
		errs = append(errs, errors.New("elevation.supercmd must not be empty"))
	}
	if c.Elevation.HandshakeTimeout.Duration <= 0 {
		errs = append(errs, errors.New("elevation.handshake_timeout must be positive"))
	}
	if c.Device.APDPath == "" {
		errs = append(errs, errors.New("device.apd_path must not be empty"))
	}
	if c.Installer.CacheDir == "" || c.Installer.StagingRoot == "" {
		errs = append(errs, errors.New("installer.cache_dir and installer.staging_root must be set"))
	}
	if c.Server.MaxPackageBytes <= 0 {
		errs = append(errs, errors.New("server.max_package_bytes must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Elevation: ElevationConfig{
			SContext:         "u:r:magisk:s0",
			SuperCmd:         "truncate",
			HandshakeTimeout: Duration{20 * time.Second},
		},
		Device: DeviceConfig{
			APDPath:             paths.APD,
			KPMSDir:             paths.KPMS,
			GlobalNamespaceFile: paths.GlobalNamespaceFile,
		},
		Installer: InstallerConfig{
			CacheDir:    paths.Cache,
			StagingRoot: paths.Staging,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            "8750",
			MaxPackageBytes: 256 << 20,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
