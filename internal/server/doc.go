// Package server exposes the core over a local HTTP control API.
//
// Routes:
//
//	GET    /health                   liveness
//	GET    /status                   current session and process info
//	POST   /session/refresh          rebuild the session
//	GET    /modules                  apd module listing (raw backend JSON)
//	POST   /modules/:id/enable       enable a module
//	POST   /modules/:id/disable      disable a module
//	DELETE /modules/:id              uninstall a module
//	GET    /ws/install?kind=APM|KPM  websocket: send the package, receive progress
//	GET    /namespace                global mount namespace flag
//	PUT    /namespace                set the flag (asynchronous)
//	GET    /capabilities             capability checks
//	POST   /apps/:package/restart    force-stop then launch an app
//	POST   /reboot                   reboot, optionally into {"reason": "..."}
//	GET    /metrics                  Prometheus metrics
//
// The install websocket expects exactly one message carrying the package
// bytes. Progress comes back as JSON frames:
//
//	{"type":"stdout","line":"module.prop"}
//	{"type":"stderr","line":"Invalid name in module.prop"}
//	{"type":"finish","success":false}
package server
