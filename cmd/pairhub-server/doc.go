// Package main provides the entry point for pairhub-server.
//
// The server hosts one messaging session per tenant and exposes:
//
//   - HTTP/HTTPS API for login, pairing codes, messaging and teardown
//   - Server-Sent Events stream of status and pairing-code changes
//   - Prometheus metrics at /metrics
//
// Usage:
//
//	pairhub-server [flags]
//	pairhub-server --config /etc/pairhub/server.yaml
//
// Configuration is read from the file, then PAIRHUB_* environment
// variables (PAIRHUB_SERVER__HTTP__ADDR and so on), then flags.
package main
