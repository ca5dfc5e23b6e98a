package protocol_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscaryu0/VaultArt/protocol"
	"github.com/oscaryu0/VaultArt/testutil"
)

type testPayload struct {
	TokenID protocol.TokenID `json:"token_id"`
	Note    string           `json:"note"`
}

func TestSignedEnvelopeRecover(t *testing.T) {
	alice := testutil.NewActor(t)

	signed, err := protocol.NewSigned(alice.Private, &testPayload{TokenID: 7, Note: "hello"})
	require.NoError(t, err)

	obj, signer, err := signed.Recover()
	require.NoError(t, err)
	assert.True(t, signer.Equal(alice.Public))
	assert.Equal(t, protocol.TokenID(7), obj.TokenID)

	// Survives a JSON round trip, as it does over HTTP.
	raw, err := json.Marshal(signed)
	require.NoError(t, err)
	decoded, err := protocol.UnmarshalMessage[protocol.Signed[testPayload]](raw)
	require.NoError(t, err)

	obj, signer, err = decoded.Recover()
	require.NoError(t, err)
	assert.True(t, signer.Equal(alice.Public))
	assert.Equal(t, "hello", obj.Note)
}

func TestSignedEnvelopeTamperDetection(t *testing.T) {
	alice := testutil.NewActor(t)
	mallory := testutil.NewActor(t)

	signed, err := protocol.NewSigned(alice.Private, &testPayload{TokenID: 7})
	require.NoError(t, err)

	t.Run("object modified", func(t *testing.T) {
		tampered := *signed
		tampered.Object = &testPayload{TokenID: 8}
		_, _, err := tampered.Recover()
		assert.Error(t, err)
	})

	t.Run("key substituted", func(t *testing.T) {
		tampered := *signed
		tampered.PublicKey = mallory.Public
		_, _, err := tampered.Recover()
		assert.Error(t, err)
	})

	t.Run("signature swapped", func(t *testing.T) {
		other, err := protocol.NewSigned(mallory.Private, &testPayload{TokenID: 7})
		require.NoError(t, err)
		tampered := *signed
		tampered.Signature = other.Signature
		_, _, err = tampered.Recover()
		assert.Error(t, err)
	})
}

func TestAuthorizationWindowAndCoverage(t *testing.T) {
	alice := testutil.NewActor(t)

	auth := &protocol.DecryptionAuthorization{
		Requester:     alice.Public,
		Handles:       []protocol.Handle{"a", "b"},
		ContextID:     "ctx",
		ValidDuration: protocol.DefaultAuthorizationValidity,
	}
	auth.ValidFrom = auth.ValidFrom.UTC()

	assert.True(t, auth.Covers("a"))
	assert.True(t, auth.Covers("b"))
	assert.False(t, auth.Covers("c"))

	now := auth.ValidFrom.Add(time.Hour)
	assert.False(t, auth.Expired(now))
	assert.True(t, auth.Expired(auth.ValidFrom.Add(-time.Minute)))
	assert.True(t, auth.Expired(auth.ValidFrom.Add(protocol.DefaultAuthorizationValidity+time.Minute)))

	// Unsigned access never verifies anything.
	signed, err := protocol.NewSigned(alice.Private, auth)
	require.NoError(t, err)
	assert.Equal(t, auth, signed.UnsafeObject())
}
