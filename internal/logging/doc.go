// Package logging provides structured logging for the Adalight receiver.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the daemon. Logging is silent by default so the
// terminal preview stays clean; set ADALIGHT_LOG_LEVEL (or pass an explicit
// level) to enable output.
//
// # Log Levels
//
//   - Debug: Detailed protocol info (sync losses, checksum mismatches, hex dumps)
//   - Info: Normal operations (port opened, frames flowing, timeout blanks)
//   - Warn: Non-fatal issues (ACK write failures, rx overflow)
//   - Error: Fatal issues (startup failures)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("serial port opened",
//	    zap.String("port", "/dev/ttyUSB0"),
//	    zap.Int("baud", 115200),
//	)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
