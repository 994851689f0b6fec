// Package installer installs module packages.
//
// An install walks a fixed sequence of states:
//
//	Fetching → Staging → Validating → Installing → Finalizing → {Succeeded, Failed}
//
// Fetching copies the caller's stream to a per-kind cache file. Staging
// unpacks it into a fresh, randomly named directory. Validating requires a
// name in module.prop. Installing hands APM packages to the apd backend and
// copies KPM packages into the kernel module root with a remove-then-copy
// overwrite. Finalizing always deletes the cache file and reports the result.
//
// Progress reaches the caller only through an Observer: stdout lines, stderr
// lines and exactly one OnFinish call per Install.
package installer
