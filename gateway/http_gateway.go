package gateway

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/protocol"
)

// HTTPGateway implements protocol.Gateway against a remote engine speaking
// the wire types in this package (the demo gateway server, or anything
// compatible). The ephemeral private key stays local: Decrypt sends the
// signed authorization only and opens the sealed response with the key.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewHTTPGateway creates a client for the engine at baseURL.
func NewHTTPGateway(baseURL string, log *slog.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// Encrypt asks the remote engine to encrypt a value on behalf of sender.
// Used by the CLI to seal bids; the marketplace core never encrypts.
func (g *HTTPGateway) Encrypt(ctx context.Context, value *big.Int, sender crypto.PublicKey) (protocol.Handle, protocol.CorrectnessProof, error) {
	var resp EncryptResponse
	err := g.post(ctx, "/gateway/encrypt", &EncryptRequest{
		Value:  value.String(),
		Sender: sender,
	}, &resp)
	if err != nil {
		return "", nil, err
	}

	proof, err := hex.DecodeString(resp.Proof)
	if err != nil {
		return "", nil, fmt.Errorf("engine returned malformed proof: %w", err)
	}
	return resp.Handle, proof, nil
}

// VerifyProof checks a ciphertext correctness proof with the remote engine.
// Transport failures count as a failed verification; a bid is never
// accepted on an unreachable engine.
func (g *HTTPGateway) VerifyProof(handle protocol.Handle, proof protocol.CorrectnessProof) bool {
	var resp VerifyProofResponse
	err := g.post(context.Background(), "/gateway/verify-proof", &VerifyProofRequest{
		Handle: handle,
		Proof:  hex.EncodeToString(proof),
	}, &resp)
	if err != nil {
		g.log.Warn("proof verification request failed", "handle", handle, "err", err)
		return false
	}
	return resp.Valid
}

// Decrypt submits the signed authorization and opens the sealed values with
// the ephemeral private key.
func (g *HTTPGateway) Decrypt(ctx context.Context, auth *protocol.DecryptionAuthorization,
	signature crypto.Signature, ephemeralKey crypto.PrivateKey,
	handles []protocol.Handle) (map[protocol.Handle]*big.Int, error) {

	var resp DecryptResponse
	err := g.post(ctx, "/gateway/decrypt", &DecryptRequest{
		Authorization: auth,
		Signature:     signature,
		Handles:       handles,
	}, &resp)
	if err != nil {
		return nil, err
	}

	result := make(map[protocol.Handle]*big.Int, len(handles))
	for _, handle := range handles {
		sealed, ok := resp.Sealed[handle]
		if !ok {
			return nil, fmt.Errorf("%w: engine returned no value for handle %s", protocol.ErrDecryptionRejected, handle)
		}
		value, err := OpenValue(ephemeralKey, handle, sealed)
		if err != nil {
			return nil, err
		}
		result[handle] = value
	}
	return result, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		// 403 carries the engine's rejection reason in the body.
		if resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %s", protocol.ErrDecryptionRejected, bytes.TrimSpace(raw))
		}
		return fmt.Errorf("engine request %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(raw))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
