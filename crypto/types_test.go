package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPairSignVerify(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	derived, err := priv.PublicKey()
	require.NoError(t, err)
	assert.True(t, derived.Equal(pub))

	data := []byte("marketplace request")
	sig, err := Sign(priv, data)
	require.NoError(t, err)
	assert.True(t, sig.Verify(pub, data))
	assert.False(t, sig.Verify(pub, []byte("tampered")))

	otherPub, _, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, sig.Verify(otherPub, data))
}

func TestPublicKeyEqualAndZero(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	clone := NewPublicKeyFromBytes(pub.Bytes())
	assert.True(t, pub.Equal(clone))
	assert.False(t, pub.IsZero())

	other, _, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, pub.Equal(other))

	assert.True(t, PublicKey(nil).IsZero())
	assert.True(t, PublicKey(make([]byte, 32)).IsZero())
}

func TestPublicKeyHexRoundTrip(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := NewPublicKeyFromString(pub.String())
	require.NoError(t, err)
	assert.True(t, pub.Equal(parsed))

	_, err = NewPublicKeyFromString("not hex")
	assert.Error(t, err)
}

func TestLocalSigner(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	signer := NewLocalSigner(priv)
	identity, err := signer.Identity()
	require.NoError(t, err)
	assert.True(t, identity.Equal(pub))

	sig, err := signer.Sign([]byte("attestation"))
	require.NoError(t, err)
	assert.True(t, sig.Verify(pub, []byte("attestation")))
}

func TestSignRejectsShortKey(t *testing.T) {
	_, err := Sign(PrivateKey{1, 2, 3}, []byte("data"))
	assert.Error(t, err)

	_, err = PrivateKey{1, 2, 3}.PublicKey()
	assert.Error(t, err)
}
