// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Output defaults to stderr. The CLI prints command and install output on
// stdout, so log lines must never interleave with it.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	logger.Info("Session acquired", zap.String("mechanism", "primary"))
//	logger.Warn("Elevation mechanism failed", zap.Error(err))
package logging
