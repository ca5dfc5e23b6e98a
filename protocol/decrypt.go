package protocol

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/oscaryu0/VaultArt/crypto"
)

// RequestState tracks a decryption request through the authorization
// handshake. Each request is terminal on success or failure; there is no
// retry inside the core, the caller re-invokes from scratch.
type RequestState int

const (
	// RequestInitiated: target handles named, requester authorized.
	RequestInitiated RequestState = iota
	// AttestationBuilt: authorization constructed with a fresh ephemeral
	// keypair and validity window.
	AttestationBuilt
	// AttestationSigned: requester's signer produced a signature over the
	// authorization's canonical encoding.
	AttestationSigned
	// Submitted: authorization, signature, and ephemeral key forwarded to
	// the Gateway. Past this point the request is no longer cancellable.
	Submitted
	// Resolved: Gateway returned cleartext or a terminal rejection.
	Resolved
)

// String returns the state name for logs.
func (s RequestState) String() string {
	switch s {
	case RequestInitiated:
		return "initiated"
	case AttestationBuilt:
		return "attestation-built"
	case AttestationSigned:
		return "attestation-signed"
	case Submitted:
		return "submitted"
	case Resolved:
		return "resolved"
	}
	return "unknown"
}

// DecryptionRequest is the per-request state of the authorization protocol.
// Nothing here is persisted: the request lives for one call and the
// ephemeral key material is discarded regardless of outcome.
type DecryptionRequest struct {
	ID        string
	Requester crypto.PublicKey
	Handles   []Handle
	State     RequestState

	auth          *DecryptionAuthorization
	signature     crypto.Signature
	ephemeralPriv crypto.PrivateKey
}

// Authorization returns the built authorization, or nil before
// AttestationBuilt. Exposed for logging and for callers that sign
// externally.
func (r *DecryptionRequest) Authorization() *DecryptionAuthorization {
	return r.auth
}

func (r *DecryptionRequest) discardEphemeral() {
	for i := range r.ephemeralPriv {
		r.ephemeralPriv[i] = 0
	}
	r.ephemeralPriv = nil
}

// InitiateDecryption starts the authorization protocol: it resolves each
// handle to its bid and checks that the requester is the seller the bid
// was sealed for. Only the listing owner at bid time may decrypt; a bidder
// can never recover even its own submitted value through this path.
//
// The check runs against a read snapshot and leaves no state behind.
func (m *Market) InitiateDecryption(requester crypto.PublicKey, handles ...Handle) (*DecryptionRequest, error) {
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: no handles named", ErrAuthorizationDenied)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, handle := range handles {
		bid, ok := m.bidByHandle[handle]
		if !ok {
			return nil, fmt.Errorf("%w: handle %s is not in the bid ledger", ErrAuthorizationDenied, handle)
		}
		if !bid.Seller.Equal(requester) {
			return nil, fmt.Errorf("%w: %s is not the seller for handle %s on token %d",
				ErrAuthorizationDenied, requester, handle, bid.TokenID)
		}
	}

	return &DecryptionRequest{
		ID:        uuid.NewString(),
		Requester: requester,
		Handles:   append([]Handle(nil), handles...),
		State:     RequestInitiated,
	}, nil
}

// BuildAttestation constructs the authorization: requester identity,
// handle set, Gateway context, validity window starting now, and a fresh
// ephemeral keypair.
func (r *DecryptionRequest) BuildAttestation(config *MarketConfig) error {
	if r.State != RequestInitiated {
		return fmt.Errorf("cannot build attestation in state %s", r.State)
	}

	ephemeralPub, ephemeralPriv, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("ephemeral keypair: %w", err)
	}

	r.auth = &DecryptionAuthorization{
		Requester:          r.Requester,
		Handles:            r.Handles,
		ContextID:          config.ContextID,
		ValidFrom:          time.Now().UTC(),
		ValidDuration:      config.AuthorizationValidity,
		EphemeralPublicKey: ephemeralPub,
	}
	r.ephemeralPriv = ephemeralPriv
	r.State = AttestationBuilt

	return nil
}

// SignAttestation obtains the requester's signature over the canonical
// encoding of the authorization. The signer capability holds the key; the
// core only sees the resulting signature.
func (r *DecryptionRequest) SignAttestation(signer Signer) error {
	if r.State != AttestationBuilt {
		return fmt.Errorf("cannot sign attestation in state %s", r.State)
	}

	canonical, err := SerializeMessage(r.auth)
	if err != nil {
		return fmt.Errorf("canonical encoding: %w", err)
	}

	signature, err := signer.Sign(canonical)
	if err != nil {
		return fmt.Errorf("attestation signature: %w", err)
	}

	r.signature = signature
	r.State = AttestationSigned

	return nil
}

// Submit forwards the signed authorization to the Gateway and awaits the
// outcome. Gateway rejections are surfaced verbatim; the ephemeral key is
// discarded regardless of outcome.
func (r *DecryptionRequest) Submit(ctx context.Context, gateway Gateway) (map[Handle]*big.Int, error) {
	if r.State != AttestationSigned {
		return nil, fmt.Errorf("cannot submit in state %s", r.State)
	}

	r.State = Submitted
	defer func() {
		r.State = Resolved
		r.discardEphemeral()
	}()

	return gateway.Decrypt(ctx, r.auth, r.signature, r.ephemeralPriv, r.Handles)
}

// RequestDecryption runs the full authorization protocol for a requester
// whose signer capability is available in-process: authorize, build, sign,
// submit, resolve. The flow is cancellable through ctx at every point
// before submission, with no side effects; once submitted the outcome is
// awaited to completion or an explicit Gateway failure.
//
// Cleartext values are returned to the caller and never written back into
// the bid ledger; repeated viewing means repeating the request.
func (m *Market) RequestDecryption(ctx context.Context, requester crypto.PublicKey, signer Signer,
	handles ...Handle) (map[Handle]*big.Int, error) {

	req, err := m.InitiateDecryption(requester, handles...)
	if err != nil {
		return nil, err
	}
	defer req.discardEphemeral()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.BuildAttestation(m.config); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.SignAttestation(signer); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return req.Submit(ctx, m.gateway)
}

// SubmitDecryption serves callers that built and signed the authorization
// themselves (the HTTP layer, where the requester's wallet signs): it runs
// the authorization check against the bid ledger, then forwards to the
// Gateway. The supplied ephemeral private key is the requester's own and
// is not retained.
func (m *Market) SubmitDecryption(ctx context.Context, auth *DecryptionAuthorization,
	signature crypto.Signature, ephemeralKey crypto.PrivateKey) (map[Handle]*big.Int, error) {

	if auth == nil {
		return nil, fmt.Errorf("%w: missing authorization", ErrAuthorizationDenied)
	}
	if _, err := m.InitiateDecryption(auth.Requester, auth.Handles...); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return m.gateway.Decrypt(ctx, auth, signature, ephemeralKey, auth.Handles)
}
