// Package logger provides structured logging for PairHub.
//
// It wraps log/slog:
//
//   - logger.go: handler construction and the shared, reloadable level
//   - redact.go: masking of credentials, API keys and pairing codes
//   - context.go: request ID propagation
//
// Components take a *slog.Logger and tag it with "component" and, where
// relevant, "tenant_id".
package logger
