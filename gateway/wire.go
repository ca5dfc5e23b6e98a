package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/protocol"
)

// Wire types shared by the HTTP gateway client and the demo gateway server.
// Big integers travel as decimal strings; sealed values and keys as hex.

type EncryptRequest struct {
	Value  string           `json:"value"`
	Sender crypto.PublicKey `json:"sender"`
}

type EncryptResponse struct {
	Handle protocol.Handle `json:"handle"`
	Proof  string          `json:"proof"`
}

type VerifyProofRequest struct {
	Handle protocol.Handle `json:"handle"`
	Proof  string          `json:"proof"`
}

type VerifyProofResponse struct {
	Valid bool `json:"valid"`
}

type DecryptRequest struct {
	Authorization *protocol.DecryptionAuthorization `json:"authorization"`
	Signature     crypto.Signature                  `json:"signature"`
	Handles       []protocol.Handle                 `json:"handles"`
}

// DecryptResponse carries values sealed to the authorization's ephemeral
// public key; the requester opens them locally. The ephemeral private key
// never crosses the wire.
type DecryptResponse struct {
	Sealed map[protocol.Handle]string `json:"sealed"`
}

const sealDomain = "vaultart/seal"

// sealedWidth is the fixed encoding width for sealed values; bid values are
// bounded well below 2^256.
const sealedWidth = 32

func sealMask(ephemeralPub crypto.PublicKey, handle protocol.Handle) []byte {
	h := sha256.New()
	h.Write([]byte(sealDomain))
	h.Write(ephemeralPub)
	h.Write([]byte(handle))
	return h.Sum(nil)
}

// SealValue encodes a cleartext value under the ephemeral public key for
// transport back to the requester. The demo gateway uses it on the server
// side; real engines substitute their own result encryption.
func SealValue(ephemeralPub crypto.PublicKey, handle protocol.Handle, value *big.Int) (string, error) {
	raw := value.Bytes()
	if len(raw) > sealedWidth {
		return "", fmt.Errorf("value for handle %s exceeds %d bytes", handle, sealedWidth)
	}

	buf := make([]byte, sealedWidth)
	copy(buf[sealedWidth-len(raw):], raw)

	mask := sealMask(ephemeralPub, handle)
	for i := range buf {
		buf[i] ^= mask[i%len(mask)]
	}
	return hex.EncodeToString(buf), nil
}

// OpenValue reverses SealValue using the ephemeral private key.
func OpenValue(ephemeralKey crypto.PrivateKey, handle protocol.Handle, sealed string) (*big.Int, error) {
	ephemeralPub, err := ephemeralKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("bad ephemeral key: %w", err)
	}

	buf, err := hex.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("sealed value for handle %s: %w", handle, err)
	}
	if len(buf) != sealedWidth {
		return nil, fmt.Errorf("sealed value for handle %s has width %d, want %d", handle, len(buf), sealedWidth)
	}

	mask := sealMask(ephemeralPub, handle)
	for i := range buf {
		buf[i] ^= mask[i%len(mask)]
	}
	return new(big.Int).SetBytes(buf), nil
}
