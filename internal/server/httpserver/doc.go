// Package httpserver provides the HTTP/HTTPS server for PairHub.
//
// The API is served with stdlib net/http:
//
//   - Tenant endpoints: /tenants, /tenants/{id}/...
//   - Event stream: /events (Server-Sent Events)
//   - Health endpoints: /health, /ready, /metrics
//
// Responses use the JSON envelope from package handler. Tenant and event
// routes are wrapped with CORS, per-IP rate limiting, audit logging and
// optional API key auth.
package httpserver
