// Package logging provides structured logging for the zerostock configuration daemon.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the daemon: transport connections, request outcomes,
// external tool invocations and best-effort side steps.
//
// # Log Levels
//
//   - Debug: Tool invocations, ownership fix-ups, raw request sizes
//   - Info: Requests handled, server lifecycle, external edits of the settings file
//   - Warn: Best-effort failures (backup, chown/chmod), fallbacks exhausted
//   - Error: Fatal startup failures, failed settings writes
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and ZEROSTOCK_LOG_LEVEL is unset the logger is a no-op,
// which keeps the client CLI quiet.
//
// # Secrets
//
// Wireless passphrases are never passed to this package. Callers redact tool
// arguments before calling LogToolRun.
package logging
