// Package logger provides structured JSON logging on log/slog, plus helpers
// for carrying a request-scoped logger through a context.Context.
package logger
