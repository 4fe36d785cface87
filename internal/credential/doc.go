// Package credential persists per-tenant protocol credentials.
//
// A credential is the opaque blob a protocol client hands back after pairing.
// It is created on first pairing, rewritten whenever the client rotates it,
// and deleted on explicit logout or when the network rejects it. Keeping it
// lets a tenant reconnect after a restart without scanning a new code.
//
// Two Store implementations exist:
//
//   - KVStore: records in a storage.KVEngine (Badger), CBOR encoded and
//     optionally sealed with an AEAD cipher bound to the tenant ID.
//   - MemoryStore: an in-process map for ephemeral runs and tests.
package credential
