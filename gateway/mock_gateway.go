package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/protocol"
)

const (
	handleDomain = "vaultart/handle"
	proofDomain  = "vaultart/proof"
)

// MockGateway is a deterministic stand-in for the encryption engine. It
// keeps cleartext values in memory keyed by handle, derives handles and
// proofs by hashing, and enforces the full authorization contract on
// Decrypt: signature, context, validity window, handle coverage, requester
// binding, and ephemeral key consistency.
//
// Failure injection: set RejectProofs to make every proof check fail, or
// DecryptErr to make Decrypt return that error after passing validation.
type MockGateway struct {
	ContextID string

	RejectProofs bool
	DecryptErr   error

	// Now is the clock used for window checks; nil means time.Now.
	Now func() time.Time

	mu      sync.Mutex
	counter uint64
	values  map[protocol.Handle]*big.Int
}

// NewMockGateway creates an empty mock engine bound to a context id.
func NewMockGateway(contextID string) *MockGateway {
	return &MockGateway{
		ContextID: contextID,
		values:    make(map[protocol.Handle]*big.Int),
	}
}

// Encrypt registers a cleartext value and returns its handle and proof.
// Handles are unique per call even for equal values, matching the behavior
// of a real engine where each encryption is fresh.
func (g *MockGateway) Encrypt(value *big.Int, sender crypto.PublicKey) (protocol.Handle, protocol.CorrectnessProof) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], g.counter)

	h := sha256.New()
	h.Write([]byte(handleDomain))
	h.Write(nonce[:])
	h.Write(sender)
	h.Write(value.Bytes())
	handle := protocol.Handle(hex.EncodeToString(h.Sum(nil)))

	g.values[handle] = new(big.Int).Set(value)
	return handle, proofFor(handle)
}

// VerifyProof checks that the proof is the one Encrypt issued for handle.
func (g *MockGateway) VerifyProof(handle protocol.Handle, proof protocol.CorrectnessProof) bool {
	if g.RejectProofs {
		return false
	}

	g.mu.Lock()
	_, known := g.values[handle]
	g.mu.Unlock()
	if !known {
		return false
	}

	expected := proofFor(handle)
	if len(proof) != len(expected) {
		return false
	}
	for i := range proof {
		if proof[i] != expected[i] {
			return false
		}
	}
	return true
}

// Decrypt validates the signed authorization and returns cleartext values
// for the requested handles. Every rejection wraps
// protocol.ErrDecryptionRejected with the concrete reason.
func (g *MockGateway) Decrypt(ctx context.Context, auth *protocol.DecryptionAuthorization,
	signature crypto.Signature, ephemeralKey crypto.PrivateKey,
	handles []protocol.Handle) (map[protocol.Handle]*big.Int, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ephemeralPub, err := ephemeralKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: bad ephemeral key: %s", protocol.ErrDecryptionRejected, err)
	}
	if !ephemeralPub.Equal(auth.EphemeralPublicKey) {
		return nil, fmt.Errorf("%w: ephemeral key does not match the authorization", protocol.ErrDecryptionRejected)
	}

	return g.DecryptAuthorized(auth, signature, handles)
}

// DecryptAuthorized runs every authorization check that does not involve
// the ephemeral private key. The demo engine server uses it directly and
// seals the result to the authorization's ephemeral public key.
func (g *MockGateway) DecryptAuthorized(auth *protocol.DecryptionAuthorization,
	signature crypto.Signature, handles []protocol.Handle) (map[protocol.Handle]*big.Int, error) {

	if auth.ContextID != g.ContextID {
		return nil, fmt.Errorf("%w: authorization for context %q, this engine serves %q",
			protocol.ErrDecryptionRejected, auth.ContextID, g.ContextID)
	}

	canonical, err := protocol.SerializeMessage(auth)
	if err != nil {
		return nil, fmt.Errorf("%w: authorization not encodable: %s", protocol.ErrDecryptionRejected, err)
	}
	if !signature.Verify(auth.Requester, canonical) {
		return nil, fmt.Errorf("%w: attestation signature does not verify against requester %s",
			protocol.ErrDecryptionRejected, auth.Requester)
	}

	now := time.Now().UTC()
	if g.Now != nil {
		now = g.Now()
	}
	if auth.Expired(now) {
		return nil, fmt.Errorf("%w: authorization window [%s, +%s] does not cover %s",
			protocol.ErrDecryptionRejected, auth.ValidFrom.Format(time.RFC3339), auth.ValidDuration, now.Format(time.RFC3339))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	result := make(map[protocol.Handle]*big.Int, len(handles))
	for _, handle := range handles {
		if !auth.Covers(handle) {
			return nil, fmt.Errorf("%w: handle %s is not named in the authorization",
				protocol.ErrDecryptionRejected, handle)
		}
		value, ok := g.values[handle]
		if !ok {
			return nil, fmt.Errorf("%w: unknown handle %s", protocol.ErrDecryptionRejected, handle)
		}
		result[handle] = new(big.Int).Set(value)
	}

	if g.DecryptErr != nil {
		return nil, g.DecryptErr
	}
	return result, nil
}

func proofFor(handle protocol.Handle) protocol.CorrectnessProof {
	h := sha256.New()
	h.Write([]byte(proofDomain))
	h.Write([]byte(handle))
	return h.Sum(nil)
}
