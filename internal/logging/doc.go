// Package logging provides slog-based structured logging for reelsmith.
//
// Loggers carry pipeline context (task, stage, provider) through attrs stored
// on the context so every stage handler logs with consistent fields.
package logging
