package services

import (
	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/protocol"
)

// Wire types for the market API. Mutating requests travel inside
// protocol.Signed envelopes; big integers travel as decimal strings and
// binary fields as hex.

// MintRequest creates the caller's one token.
type MintRequest struct {
	URI string `json:"uri,omitempty"`
}

// MintResponse returns the id assigned at mint.
type MintResponse struct {
	TokenID protocol.TokenID `json:"token_id"`
}

// ListRequest puts the caller's token up for sale at a public price.
type ListRequest struct {
	TokenID protocol.TokenID `json:"token_id"`
	Price   string           `json:"price"`
}

// CancelRequest deactivates the caller's active listing.
type CancelRequest struct {
	TokenID protocol.TokenID `json:"token_id"`
}

// BuyRequest purchases a listed token at its asking price.
type BuyRequest struct {
	TokenID protocol.TokenID `json:"token_id"`
	Payment string           `json:"payment"`
}

// PlaceBidRequest appends a sealed offer to a token's bid log. Handle and
// proof come from the encryption engine; the service never sees the value.
type PlaceBidRequest struct {
	TokenID protocol.TokenID `json:"token_id"`
	Handle  protocol.Handle  `json:"handle"`
	Proof   string           `json:"proof"`
}

// DecryptRequest submits a client-built decryption authorization. The
// envelope signer must match the authorization's requester. EphemeralKey
// is the hex of the one-shot private key the authorization names; clients
// generate it fresh per request.
type DecryptRequest struct {
	Authorization        *protocol.DecryptionAuthorization `json:"authorization"`
	AttestationSignature crypto.Signature                  `json:"attestation_signature"`
	EphemeralKey         string                            `json:"ephemeral_key"`
}

// DecryptResponse carries cleartext bid values as decimal strings.
type DecryptResponse struct {
	Values map[protocol.Handle]string `json:"values"`
}

// DepositRequest credits the caller's demo balance.
type DepositRequest struct {
	Amount string `json:"amount"`
}

// StatusResponse confirms a mutation or reports its failure.
type StatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ListingsResponse returns the active listings snapshot.
type ListingsResponse struct {
	Listings []*protocol.Listing `json:"listings"`
}

// BidsResponse returns a token's sealed offers in submission order.
type BidsResponse struct {
	Bids []*protocol.EncryptedBid `json:"bids"`
}

// TokenResponse describes one token.
type TokenResponse struct {
	Token *protocol.ArtToken `json:"token"`
}

// TokenOfResponse reports the token minted to an identity; zero if none.
type TokenOfResponse struct {
	TokenID protocol.TokenID `json:"token_id"`
}

// BalanceResponse reports a demo-ledger balance as a decimal string.
type BalanceResponse struct {
	Balance string `json:"balance"`
}
