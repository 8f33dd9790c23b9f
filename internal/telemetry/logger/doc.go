// Package logger provides structured logging for websec.
//
// It wraps log/slog:
//
//   - logger.go: handler construction, levels and the process-wide default
//   - context.go: request-scoped loggers carrying request and session IDs
//   - redact.go: masking of passwords, salts, hashes and token values
//
// Every handler built by New runs attributes through the redactor, so a
// careless "password", pw pair never reaches the output.
package logger
