/*
Package log provides structured logging for Omzet using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Thread-safe concurrent writes

Configuration:
  - Level: debug/info/warn/error threshold
  - JSONOutput: JSON for production, console for development
  - Output: io.Writer destination, defaults to stdout

Context Loggers:
  - WithComponent adds the component name to every line
  - Child loggers carry their context without repetition

# Usage

Initializing:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Simple logging:

	log.Info("engine started")
	log.Error("store unavailable")

Structured logging:

	log.Logger.Info().
		Str("database_id", "db-123").
		Int("assigned", 50).
		Msg("records assigned")

Component loggers:

	logger := log.WithComponent("resolver")
	logger.Info().Str("reservation_id", id).Msg("reservation activated")

Zero-value loggers are silent, which keeps test fixtures free of log noise.

# Log Output Examples

JSON format:

	{"level":"info","component":"assign","time":"2026-08-24T01:00:00Z","message":"records assigned"}

Console format:

	01:00:00 INF records assigned component=assign

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
