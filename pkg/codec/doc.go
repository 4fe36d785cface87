// Package codec provides the CBOR encoding used for records persisted by
// PairHub.
//
// Encoding is deterministic (RFC 8949 Core Deterministic Encoding): the same
// value always produces identical bytes. Decoding ignores unknown fields so
// older binaries can read records written by newer ones.
package codec
