// Package loopback is an in-process protocol driver that simulates a
// messaging network.
//
// A Network tracks which tenants hold a valid credential and which clients
// are live. Without a credential a client issues a random pairing code and
// pairs when Network.Approve is called or after Config.AutoPairAfter. With a
// valid credential it connects directly. Network.Disconnect injects a
// disconnect with any reason, which is how fatal and transient paths are
// exercised end to end.
//
// Nothing leaves the process: sent messages are recorded in an outbox.
package loopback
