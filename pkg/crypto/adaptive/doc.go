// Package adaptive provides authenticated encryption for data PairHub keeps
// at rest.
//
// The cipher is picked from the host architecture: AES-256-GCM where the
// runtime has hardware AES, ChaCha20-Poly1305 elsewhere. Keys can be derived
// from an operator passphrase with Argon2id and split into purpose-bound
// subkeys with HKDF.
//
// Usage:
//
//	salt, _ := adaptive.NewSalt()
//	master := adaptive.DeriveKey(passphrase, salt)
//	key, _ := adaptive.DeriveSubkey(master, "credential-seal", adaptive.KeySize)
//	c, _ := adaptive.New(key)
//	sealed, _ := c.Encrypt(plaintext, aad)
package adaptive
