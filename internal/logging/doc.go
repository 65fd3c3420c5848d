// Package logging assembles structured slog loggers for the mashup service.
//
// It owns the console and JSON handlers, resolves level and output routing
// from configuration, and exposes context-aware helpers so pipeline stages
// tag every line with the request correlation ID and the active stage. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
