// Package logging defines the minimal structured-logging interface the
// storage layer emits through. Implementations can wrap slog, zap, zerolog,
// etc. Domain errors are returned to callers as typed results, never
// logged-and-swallowed, so the logger only sees operational events
// (startup, migrations, pool lifecycle).
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "migrations applied", "dsn", cfg.DatabaseDSN)
type Logger interface {
	// Debug logs fine-grained diagnostics.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
