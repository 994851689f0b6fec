// Command apcore manages privileged sessions and modules on a rooted
// device.
//
// Usage:
//
//	apcore serve                         # control API on 127.0.0.1:8750
//	apcore module list
//	apcore module install pkg.zip --kind KPM
//	apcore detect
//	apcore namespace on
//	apcore shell
//
// Configuration is read from --config (TOML) and APCORE_* environment
// variables.
package main
