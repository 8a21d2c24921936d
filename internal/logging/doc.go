// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout (text or json) and, when journald is reachable, to the
// systemd journal under the "ptzrelay" identifier. Each module gets its own
// *slog.Logger carrying a module attribute:
//
//	logger := logging.GetLogger("stream")
//	logger.Info("Transcoder started", "pid", pid)
//
// Levels are configured globally with per-module overrides:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	stream = "debug"
//	camera = "warn"
//
// Loggers obtained before Initialize are updated in place.
//
//	journalctl -t ptzrelay MODULE=stream -f
package logging
