package paths

import (
	"path/filepath"
	"strings"
)

// Backend and privileged locations on the device
const (
	// APD is the module backend binary
	APD = "/data/adb/apd"

	// KPMS holds installed kernel-patch modules, one directory each
	KPMS = "/data/adb/kpm"

	// GlobalNamespaceFile toggles mounting modules in the global namespace
	GlobalNamespaceFile = "/data/adb/.global_namespace_enable"
)

// Local work areas
const (
	Cache   = "/data/local/tmp/apcore/cache"
	Staging = "/data/local/tmp/apcore/staging"
)

// Extra directories appended to PATH in every privileged session
var ExtraBinDirs = []string{"/system_ext/bin", "/vendor/bin"}

// KPatchBinary is the compatibility elevation binary shipped with the app
const KPatchBinary = "libkpatch.so"

// KPatchPath returns the compatibility binary path inside the native library directory
func KPatchPath(nativeLibDir string) string {
	return filepath.Join(nativeLibDir, KPatchBinary)
}

// PackageCache returns the cache file used while installing a package of the given kind
func PackageCache(cacheDir, kind string) string {
	return filepath.Join(cacheDir, "module_"+kind+".zip")
}

// KPMTarget returns the install directory for a kernel-patch module staged under name
func KPMTarget(kpmsDir, name string) string {
	return filepath.Join(kpmsDir, name)
}

// Within reports whether path lies strictly inside root
func Within(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
