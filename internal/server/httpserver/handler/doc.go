// Package handler provides HTTP request handlers for PairHub.
//
// This package contains handlers for all HTTP endpoints:
//
//   - tenant.go: login, status, pairing code, messaging, logout and close
//   - events.go: Server-Sent Events stream of session events
//   - health.go: health, readiness and metrics
//
// All handlers follow a consistent pattern:
//
//   - Parse and validate request
//   - Call the session manager
//   - Format and return response
//   - Handle errors with appropriate HTTP status codes
package handler
