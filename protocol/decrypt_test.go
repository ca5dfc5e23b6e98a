package protocol_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/protocol"
	"github.com/oscaryu0/VaultArt/testutil"
)

// listWithBid mints a token for seller, lists it, and places one sealed bid
// of the given value from bidder.
func listWithBid(t *testing.T, tm *testutil.TestMarket, seller, bidder *testutil.Actor, value int64) (protocol.TokenID, protocol.Handle) {
	t.Helper()

	id, err := tm.Market.Mint(seller.Public, "")
	require.NoError(t, err)
	require.NoError(t, tm.Market.List(seller.Public, id, big.NewInt(1)))

	handle, proof := tm.SealedBid(value, bidder)
	require.NoError(t, tm.Market.PlaceBid(bidder.Public, id, handle, proof))
	return id, handle
}

func TestRequestDecryptionRoundTrip(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	_, handle := listWithBid(t, tm, alice, bob, 20000)

	values, err := tm.Market.RequestDecryption(context.Background(), alice.Public, alice.Signer, handle)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "20000", values[handle].String())
}

func TestRequestDecryptionMultipleHandles(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)
	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(1)))

	want := map[protocol.Handle]int64{}
	for _, v := range []int64{11, 22, 33} {
		bidder := testutil.NewActor(t)
		handle, proof := tm.SealedBid(v, bidder)
		require.NoError(t, tm.Market.PlaceBid(bidder.Public, id, handle, proof))
		want[handle] = v
	}

	handles := make([]protocol.Handle, 0, len(want))
	for h := range want {
		handles = append(handles, h)
	}

	values, err := tm.Market.RequestDecryption(context.Background(), alice.Public, alice.Signer, handles...)
	require.NoError(t, err)
	require.Len(t, values, len(want))
	for handle, v := range want {
		assert.Equal(t, big.NewInt(v), values[handle])
	}
}

func TestRequestDecryptionDeniedForNonSeller(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	_, handle := listWithBid(t, tm, alice, bob, 500)

	// The bidder cannot decrypt its own bid through the marketplace.
	_, err := tm.Market.RequestDecryption(context.Background(), bob.Public, bob.Signer, handle)
	assert.ErrorIs(t, err, protocol.ErrAuthorizationDenied)

	stranger := testutil.NewActor(t)
	_, err = tm.Market.RequestDecryption(context.Background(), stranger.Public, stranger.Signer, handle)
	assert.ErrorIs(t, err, protocol.ErrAuthorizationDenied)
}

func TestRequestDecryptionUnknownHandle(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)

	_, err := tm.Market.RequestDecryption(context.Background(), alice.Public, alice.Signer, "no-such-handle")
	assert.ErrorIs(t, err, protocol.ErrAuthorizationDenied)

	_, err = tm.Market.RequestDecryption(context.Background(), alice.Public, alice.Signer)
	assert.ErrorIs(t, err, protocol.ErrAuthorizationDenied)
}

func TestRequestDecryptionCancelledBeforeSubmission(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	_, handle := listWithBid(t, tm, alice, bob, 500)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tm.Market.RequestDecryption(ctx, alice.Public, alice.Signer, handle)
	assert.ErrorIs(t, err, context.Canceled)

	// No state was left behind; a fresh request still works.
	values, err := tm.Market.RequestDecryption(context.Background(), alice.Public, alice.Signer, handle)
	require.NoError(t, err)
	assert.Equal(t, "500", values[handle].String())
}

func TestOriginalSellerDecryptsAfterSale(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)
	carol := testutil.FundedActor(t, tm.Bank, 1000)

	id, handle := listWithBid(t, tm, alice, bob, 20000)
	require.NoError(t, tm.Market.Buy(carol.Public, id, big.NewInt(1)))

	// The bid log survives the sale and the bid stays bound to Alice.
	bids := tm.Market.Bids(id)
	require.Len(t, bids, 1)
	assert.True(t, bids[0].Seller.Equal(alice.Public))

	values, err := tm.Market.RequestDecryption(context.Background(), alice.Public, alice.Signer, handle)
	require.NoError(t, err)
	assert.Equal(t, "20000", values[handle].String())

	// The new owner never gains access to historical bids.
	_, err = tm.Market.RequestDecryption(context.Background(), carol.Public, carol.Signer, handle)
	assert.ErrorIs(t, err, protocol.ErrAuthorizationDenied)
}

func TestRepeatedDecryptionRequiresFreshRequest(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	_, handle := listWithBid(t, tm, alice, bob, 77)

	for i := 0; i < 2; i++ {
		values, err := tm.Market.RequestDecryption(context.Background(), alice.Public, alice.Signer, handle)
		require.NoError(t, err)
		assert.Equal(t, "77", values[handle].String())
	}
}

func TestDecryptionRequestStateMachine(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	_, handle := listWithBid(t, tm, alice, bob, 5)

	req, err := tm.Market.InitiateDecryption(alice.Public, handle)
	require.NoError(t, err)
	assert.Equal(t, protocol.RequestInitiated, req.State)
	assert.NotEmpty(t, req.ID)
	assert.Nil(t, req.Authorization())

	// Out-of-order transitions are rejected.
	require.Error(t, req.SignAttestation(alice.Signer))
	_, err = req.Submit(context.Background(), tm.Gateway)
	require.Error(t, err)

	require.NoError(t, req.BuildAttestation(tm.Market.Config()))
	assert.Equal(t, protocol.AttestationBuilt, req.State)

	auth := req.Authorization()
	require.NotNil(t, auth)
	assert.True(t, auth.Requester.Equal(alice.Public))
	assert.True(t, auth.Covers(handle))
	assert.Equal(t, testutil.TestContextID, auth.ContextID)
	assert.Equal(t, protocol.DefaultAuthorizationValidity, auth.ValidDuration)
	assert.NotEmpty(t, auth.EphemeralPublicKey)

	require.Error(t, req.BuildAttestation(tm.Market.Config()))

	require.NoError(t, req.SignAttestation(alice.Signer))
	assert.Equal(t, protocol.AttestationSigned, req.State)

	values, err := req.Submit(context.Background(), tm.Gateway)
	require.NoError(t, err)
	assert.Equal(t, "5", values[handle].String())
	assert.Equal(t, protocol.Resolved, req.State)

	// Terminal: a resolved request cannot be submitted again.
	_, err = req.Submit(context.Background(), tm.Gateway)
	require.Error(t, err)
}

func TestSubmitDecryptionWithExternalSignature(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	_, handle := listWithBid(t, tm, alice, bob, 123)

	ephemeralPub, ephemeralPriv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	req, err := tm.Market.InitiateDecryption(alice.Public, handle)
	require.NoError(t, err)
	require.NoError(t, req.BuildAttestation(tm.Market.Config()))

	// Rebuild the authorization the way an external wallet would.
	auth := *req.Authorization()
	auth.EphemeralPublicKey = ephemeralPub

	canonical, err := protocol.SerializeMessage(&auth)
	require.NoError(t, err)
	signature, err := crypto.Sign(alice.Private, canonical)
	require.NoError(t, err)

	values, err := tm.Market.SubmitDecryption(context.Background(), &auth, signature, ephemeralPriv)
	require.NoError(t, err)
	assert.Equal(t, "123", values[handle].String())

	// A signature from anyone but the requester is rejected by the engine.
	badSig, err := crypto.Sign(bob.Private, canonical)
	require.NoError(t, err)
	_, err = tm.Market.SubmitDecryption(context.Background(), &auth, badSig, ephemeralPriv)
	assert.ErrorIs(t, err, protocol.ErrDecryptionRejected)
}

func TestGatewayRejectionSurfaced(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	_, handle := listWithBid(t, tm, alice, bob, 9)

	tm.Gateway.DecryptErr = protocol.ErrDecryptionRejected

	_, err := tm.Market.RequestDecryption(context.Background(), alice.Public, alice.Signer, handle)
	assert.ErrorIs(t, err, protocol.ErrDecryptionRejected)
}
