// Package tlsroots manages TLS material for the PairHub HTTP surface.
//
//   - reloader.go: server certificate hot reload via fsnotify
//   - pool.go: CA bundle loading for clients talking to a TLS server
package tlsroots
