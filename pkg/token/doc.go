// Package token provides random token generation and constant-time secret
// comparison.
//
// Tokens are Base64 RawURL encoded random bytes from crypto/rand, optionally
// prefixed so that log redaction can recognise them (pairing codes use
// PairingCodePrefix).
package token
