// Package connection provides the HTTP client pairhub-cli uses to talk to
// pairhub-server.
//
//   - http.go: request helpers and response envelope decoding
//   - sse.go: Server-Sent Events reader for /events
package connection
