// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stderr when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// Stdout is left alone: it carries progress bars and command output.
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"ffmpeg": "debug",  // Per-module overrides
//			"api":    "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("encode")
//	logger.Info("Starting pass", "pass", 1)
//	logger.Warn("Probe unavailable", "error", err)
//
// Loggers obtained before Initialize are cached and follow later
// configuration changes.
//
// # Modules
//
//	encode   - run orchestration, planning decisions
//	ffmpeg   - diagnostics printed by the encoder
//	process  - child process lifecycle
//	probe    - ffprobe queries
//	jobs     - job queue
//	watch    - drop folder
//	profiles - wall profile store
//	history  - run history database
//	api      - HTTP server
//	config   - config file watching
//	systemd  - sd_notify status
//
// # Viewing Logs
//
// When running as a systemd service or on a system with journald:
//
//	journalctl -t debezel              # All debezel logs
//	journalctl -t debezel -f           # Follow live
//	journalctl -t debezel -p err       # Errors only
//	journalctl -t debezel MODULE=ffmpeg
//	journalctl -t debezel JOB_ID=<id>  # One job's run
//
// # Configuration
//
// Example TOML configuration; keys other than level and format are
// per-module levels:
//
//	[logging]
//	level = "info"
//	format = "text"
//	ffmpeg = "debug"
//	api = "warn"
package logging
