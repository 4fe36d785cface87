// Package storage provides the embedded key-value engine PairHub persists
// state in.
//
// BadgerEngine wraps Badger v3. It runs on disk under a data directory, or
// fully in memory for ephemeral deployments and tests. Values are opaque
// bytes; callers own their encoding and key layout.
package storage
