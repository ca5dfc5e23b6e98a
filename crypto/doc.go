// Package crypto provides the identity and signing primitives for VaultArt.
//
// Every marketplace actor is a public-key-derived principal: the Ed25519
// public key is the identity used as mint, listing, bidding, and decryption
// actor throughout the protocol. The package provides:
//
//   - PublicKey / PrivateKey types with hex serialization helpers
//   - Ed25519 signatures for authenticating protocol messages and
//     decryption authorization attestations
//   - LocalSigner, a signer capability bound to one private key, for
//     callers that hold their key in-process (tests, the CLI)
//
// The homomorphic encryption primitives themselves (ciphertext creation,
// proof verification, gated decryption) live behind the protocol.Gateway
// interface and are not implemented here.
package crypto
