// Package domain defines the core domain models for PairHub.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Status: connection states of a tenant session
//   - Event: status and pairing-code notifications for observers
//   - Disconnect classification: fatal, transient and unknown reasons
//   - Message payloads: addresses, files and delivery receipts
//   - Errors: domain-specific error definitions
package domain
