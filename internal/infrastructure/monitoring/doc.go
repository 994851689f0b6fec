/*
Package monitoring provides metrics collection for apcore.

# Overview

Prometheus metrics for the privileged session, shell jobs, module installs and
the control API. Each Metrics value owns a private registry, so several
instances (one per test) never collide on registration.

# Metrics

  - apcore_session_acquire_attempts_total{mechanism,outcome}
  - apcore_session_refreshes_total, apcore_session_privileged
  - apcore_shell_jobs_total{outcome}, apcore_shell_job_duration_seconds
  - apcore_installs_total{kind,outcome}, apcore_install_duration_seconds{kind}
  - apcore_http_requests_total{method,path,status}, apcore_http_request_duration_seconds
  - apcore_ws_connections

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

A nil *Metrics is valid and records nothing.
*/
package monitoring
