// Package protocol defines the boundary between PairHub and a messaging
// network driver.
//
// A Client is one live connection for one tenant. It reports progress as a
// stream of typed Events (pairing code issued, connecting, ready, credential
// rotated, disconnected) and exposes the few outbound operations PairHub
// needs. The wire protocol itself lives entirely behind this interface.
//
// Drivers:
//
//   - loopback: an in-process simulator for development and tests
//   - protocoltest: a scriptable fake for unit tests
package protocol
