// Package config provides layered configuration for apcore.
//
// Values come from three layers, later ones winning:
//  1. Default()
//  2. an optional TOML file (--config)
//  3. APCORE_* environment variables
//
// Configuration Sections:
//   - Elevation: superkey, security context, superuser alias, native lib dir, handshake timeout
//   - Device: apd binary, kernel-patch module root, global namespace flag file
//   - Installer: cache and staging directories
//   - Server: control API listen address
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting of the control API
//
// Example Usage:
//
//	cfg, err := config.Load("/data/adb/apcore.toml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Server.Addr())
//
// Environment Variables:
//   - APCORE_SUPERKEY, APCORE_SCONTEXT, APCORE_SUPERCMD, APCORE_NATIVE_LIB_DIR, APCORE_HANDSHAKE_TIMEOUT
//   - APCORE_APD_PATH, APCORE_KPMS_DIR, APCORE_GLOBAL_NAMESPACE_FILE
//   - APCORE_CACHE_DIR, APCORE_STAGING_ROOT
//   - APCORE_API_HOST, APCORE_API_PORT, APCORE_LOG_LEVEL, APCORE_LOG_DEV
//   - APCORE_RATE_LIMIT_RPS, APCORE_RATE_LIMIT_BURST, APCORE_RATE_LIMIT_ENABLED
package config
