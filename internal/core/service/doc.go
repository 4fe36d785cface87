// Package service provides the domain services for PairHub.
//
// This package contains:
//
//   - SessionManager: the tenant registry. It owns every live session,
//     serializes control operations per tenant, restores paired tenants at
//     boot and tears everything down on shutdown.
//   - AuthService: API key verification and per-client rate limiting for
//     the HTTP surface.
//
// Services are safe for concurrent use.
package service
