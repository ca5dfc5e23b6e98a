package protocol

import (
	"context"
	"math/big"

	"github.com/oscaryu0/VaultArt/crypto"
)

// Signer produces signatures bound to one identity's private key. The core
// never holds private signing keys; it hands the attestation's canonical
// encoding to this capability and uses whatever comes back.
type Signer interface {
	// Sign signs the canonical bytes of a decryption authorization.
	Sign(canonical []byte) (crypto.Signature, error)
}

// Gateway is the homomorphic encryption engine the core calls through.
// Ciphertext math, key generation, and proof systems are entirely behind
// this interface; the core's duty is only to refuse bids on a negative
// verification result and to gate decryption behind a valid authorization.
type Gateway interface {
	// VerifyProof checks the correctness proof for a ciphertext handle.
	VerifyProof(handle Handle, proof CorrectnessProof) bool

	// Decrypt verifies the signed authorization and, if acceptable,
	// returns cleartext values keyed by handle. Rejections (bad signature,
	// expired window, handle or requester mismatch) are reported as errors
	// wrapping ErrDecryptionRejected with the Gateway's own reason.
	Decrypt(ctx context.Context, auth *DecryptionAuthorization, signature crypto.Signature,
		ephemeralKey crypto.PrivateKey, handles []Handle) (map[Handle]*big.Int, error)
}

// ValueTransfer is the native-value substrate used by the settlement
// engine. Transfer debits from and credits to atomically, failing without
// effect if the payer cannot cover the amount.
type ValueTransfer interface {
	Transfer(from, to crypto.PublicKey, amount *big.Int) error
}
