// Package protocol implements the VaultArt sealed-bid marketplace core:
// the token registry, listing manager, confidential bid ledger, settlement
// engine, and the decryption authorization protocol.
//
// The core is a state machine over three tables (tokens, listings, bids)
// guarded by a single lock: every mutating operation is a serializable
// transaction that validates, then commits, bumping a global commit
// sequence. Reads take consistent snapshots and never block writers for
// longer than a copy.
//
// Confidentiality model:
//   - Bid values are never present in the core. A bid carries an opaque
//     ciphertext handle plus a correctness proof; proof verification and
//     decryption are delegated to an external Gateway capability.
//   - Only the seller recorded on a bid at append time may authorize its
//     decryption. Authorization is a signed, time-bounded attestation over
//     a canonical encoding, consumed once by the Gateway and never stored.
//   - Cleartext bid values are returned to the caller and never written
//     back into the ledger.
//
// External capabilities (Signer, Gateway, ValueTransfer) are plain
// interfaces so tests substitute deterministic doubles.
package protocol
