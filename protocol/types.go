package protocol

import (
	"math/big"
	"time"

	"github.com/oscaryu0/VaultArt/crypto"
)

// TokenID identifies a minted ArtToken. IDs are assigned by a monotonic
// counter starting at 1; 0 is reserved as "no token".
type TokenID uint64

// Handle is an opaque reference to an encrypted bid value held by the
// Gateway. It is verifiable (via its correctness proof) but not readable
// without a decryption authorization.
type Handle string

// CorrectnessProof is the evidence accompanying a ciphertext handle that it
// encodes a validly-formed value without revealing it. The core never
// inspects proofs; verification is delegated to the Gateway.
type CorrectnessProof []byte

// ArtToken is a uniquely-minted collectible. Tokens are created on mint,
// change owner on settlement, and are never destroyed.
type ArtToken struct {
	ID    TokenID          `json:"token_id"`
	Owner crypto.PublicKey `json:"owner"`
	// Minter is the identity the token was minted to. It never changes and
	// backs the one-mint-per-identity rule across restarts.
	Minter crypto.PublicKey `json:"minter"`
	// URI is optional artwork metadata supplied at mint, informational only.
	URI string `json:"uri,omitempty"`
}

// Listing is the single current sale record for a token. Re-listing while
// active replaces the price; there is no listing history. After a
// successful purchase the record is deactivated and the seller cleared.
type Listing struct {
	TokenID TokenID          `json:"token_id"`
	Seller  crypto.PublicKey `json:"seller"`
	Price   *big.Int         `json:"price"`
	Active  bool             `json:"active"`
}

// EncryptedBid is one sealed offer on a token. Bids are append-only: they
// are never mutated or deleted, and remain readable after the token is
// sold. Seller pins the listing seller at append time so historical bids
// stay decryptable by the identity they were sealed for.
type EncryptedBid struct {
	TokenID   TokenID          `json:"token_id"`
	Bidder    crypto.PublicKey `json:"bidder"`
	Seller    crypto.PublicKey `json:"seller"`
	Handle    Handle           `json:"handle"`
	Proof     CorrectnessProof `json:"proof"`
	Timestamp time.Time        `json:"timestamp"`
}

// DecryptionAuthorization is the time-bounded statement a requester signs
// to let an ephemeral key receive cleartext for the named handles. It is
// built per request, consumed once by the Gateway, and never persisted.
type DecryptionAuthorization struct {
	Requester crypto.PublicKey `json:"requester"`
	Handles   []Handle         `json:"handles"`

	// ContextID binds the authorization to one marketplace deployment so a
	// signature cannot be replayed against another Gateway context.
	ContextID string `json:"context_id"`

	ValidFrom     time.Time     `json:"valid_from"`
	ValidDuration time.Duration `json:"valid_duration"`

	// EphemeralPublicKey is the one-shot key the Gateway returns results
	// under. The matching private key never appears in the authorization.
	EphemeralPublicKey crypto.PublicKey `json:"ephemeral_public_key"`
}

// Expired reports whether the authorization's validity window has passed
// at the given instant.
func (a *DecryptionAuthorization) Expired(now time.Time) bool {
	return now.Before(a.ValidFrom) || now.After(a.ValidFrom.Add(a.ValidDuration))
}

// Covers reports whether the authorization names the given handle.
func (a *DecryptionAuthorization) Covers(handle Handle) bool {
	for _, h := range a.Handles {
		if h == handle {
			return true
		}
	}
	return false
}
