package protocol

import "errors"

// Error taxonomy for the marketplace core. All errors are terminal for the
// triggering call: no operation retries internally and no operation
// partially applies on error. Callers match with errors.Is; the wrapped
// message carries the token, handle, or identity needed to render an
// actionable failure without the core doing any formatting.
var (
	// ErrAlreadyMinted is returned when an identity that has ever received
	// a token attempts a second mint. Minting is a one-time right and is
	// not restored by selling the token.
	ErrAlreadyMinted = errors.New("identity already minted")

	// ErrUnknownToken is returned for token ids that were never minted.
	ErrUnknownToken = errors.New("unknown token")

	// ErrNotOwner is returned when a listing operation is attempted by an
	// identity that does not own the token.
	ErrNotOwner = errors.New("not token owner")

	// ErrInvalidPrice is returned for listings priced at zero or below.
	ErrInvalidPrice = errors.New("invalid listing price")

	// ErrNotActive is returned by Cancel when the listing is not active.
	ErrNotActive = errors.New("listing not active")

	// ErrListingNotActive is returned by PlaceBid and Buy when the token
	// has no active listing.
	ErrListingNotActive = errors.New("no active listing")

	// ErrInsufficientPayment is returned by Buy when the payment does not
	// cover the listing price.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrInvalidProof is returned by PlaceBid when the Gateway rejects the
	// ciphertext correctness proof.
	ErrInvalidProof = errors.New("invalid ciphertext proof")

	// ErrAuthorizationDenied is returned when a decryption requester is
	// not the seller recorded on the bid holding the handle.
	ErrAuthorizationDenied = errors.New("decryption authorization denied")

	// ErrDecryptionRejected wraps Gateway-side decryption failures (bad
	// signature, expired validity window, handle or requester mismatch).
	// The Gateway's reason is surfaced verbatim, not translated, since the
	// precise cause is security-relevant to the caller.
	ErrDecryptionRejected = errors.New("decryption rejected")
)
