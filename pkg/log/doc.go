// Package log builds the [log/slog] handlers used by the monana CLI and
// carries request-scoped loggers through [context.Context].
package log
