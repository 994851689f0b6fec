// Package paths provides the fixed device locations used by the core.
//
// The privileged locations mirror the layout the apd backend expects. Any
// change here must be synchronized with the backend.
//
// # Directory Structure
//
//	/data/adb/
//	  ├── apd                          (module backend binary)
//	  ├── kpm/<staging-id>/            (installed kernel-patch modules)
//	  └── .global_namespace_enable     ("1" when enabled)
//	/data/local/tmp/apcore/
//	  ├── cache/module_<KIND>.zip      (fetched packages, removed after install)
//	  └── staging/<staging-id>/        (extracted packages)
package paths
