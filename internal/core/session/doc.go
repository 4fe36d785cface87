// Package session implements one tenant's connection lifecycle.
//
// A Session owns exactly one protocol.Client handle at a time and drives it
// through pairing, connecting and reconnecting:
//
//	IDLE -> INITIALIZING -> AWAITING_PAIRING -> CONNECTING -> CONNECTED
//
// with DISCONNECTED, AUTH_FAILED, ERROR, TIMEOUT and LOGGED_OUT as the
// recoverable or terminal outcomes. All protocol events flow through a
// single transition function. Every handle is tagged with a generation;
// events from a handle whose generation is no longer current are dropped,
// which is how Close cancels an in-flight pairing or reconnect.
package session
