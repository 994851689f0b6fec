package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/apcore/internal/shared/paths"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Elevation config
	assert.Equal(t, "truncate", cfg.Elevation.SuperCmd)
	assert.Equal(t, "u:r:magisk:s0", cfg.Elevation.SContext)
	assert.Equal(t, 20*time.Second, cfg.Elevation.HandshakeTimeout.Duration)
	assert.Empty(t, cfg.Elevation.SuperKey)

	// Device config
	assert.Equal(t, paths.APD, cfg.Device.APDPath)
	assert.Equal(t, paths.KPMS, cfg.Device.KPMSDir)
	assert.Equal(t, paths.GlobalNamespaceFile, cfg.Device.GlobalNamespaceFile)

	// Installer config
	assert.Equal(t, paths.Cache, cfg.Installer.CacheDir)
	assert.Equal(t, paths.Staging, cfg.Installer.StagingRoot)

	// Server config
	assert.Equal(t, "127.0.0.1:8750", cfg.Server.Addr())

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "truncate", cfg.Elevation.SuperCmd)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"APCORE_SUPERKEY":           "s3cret",
		"APCORE_HANDSHAKE_TIMEOUT":  "5s",
		"APCORE_APD_PATH":           "/tmp/apd",
		"APCORE_CACHE_DIR":          "/tmp/cache",
		"APCORE_API_PORT":           "9000",
		"APCORE_API_TOKEN":          "t0ken",
		"APCORE_LOG_LEVEL":          "debug",
		"APCORE_RATE_LIMIT_ENABLED": "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Elevation.SuperKey)
	assert.Equal(t, 5*time.Second, cfg.Elevation.HandshakeTimeout.Duration)
	assert.Equal(t, "/tmp/apd", cfg.Device.APDPath)
	assert.Equal(t, "/tmp/cache", cfg.Installer.CacheDir)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "t0ken", cfg.Server.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.RateLimit.Enabled)

	// Untouched values keep their defaults
	assert.Equal(t, paths.KPMS, cfg.Device.KPMSDir)
	assert.Equal(t, "truncate", cfg.Elevation.SuperCmd)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apcore.toml")
	content := `
[elevation]
superkey = "from-file"
native_lib_dir = "/data/app/lib/arm64"
handshake_timeout = "3s"

[device]
kpms_dir = "/data/adb/kpm-test"

[server]
port = "8800"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("APCORE_API_PORT", "8900")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Elevation.SuperKey)
	assert.Equal(t, "/data/app/lib/arm64", cfg.Elevation.NativeLibDir)
	assert.Equal(t, 3*time.Second, cfg.Elevation.HandshakeTimeout.Duration)
	assert.Equal(t, "/data/adb/kpm-test", cfg.Device.KPMSDir)
	assert.Equal(t, "8900", cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, "127.0.0.1", cfg.Server.Host, "defaults survive partial files")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("APCORE_HANDSHAKE_TIMEOUT", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Elevation.SuperCmd = ""
	cfg.Elevation.HandshakeTimeout = Duration{}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supercmd")
	assert.Contains(t, err.Error(), "handshake_timeout")
}
