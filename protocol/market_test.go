package protocol_test

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscaryu0/VaultArt/protocol"
	"github.com/oscaryu0/VaultArt/testutil"
)

func TestMintOncePerIdentity(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "ipfs://alice-art")
	require.NoError(t, err)
	assert.Equal(t, protocol.TokenID(1), id)

	owner, err := tm.Market.OwnerOf(id)
	require.NoError(t, err)
	assert.True(t, owner.Equal(alice.Public))

	uri, err := tm.Market.TokenURI(id)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://alice-art", uri)

	_, err = tm.Market.Mint(alice.Public, "ipfs://again")
	assert.ErrorIs(t, err, protocol.ErrAlreadyMinted)

	assert.Equal(t, id, tm.Market.TokenOf(alice.Public))
}

func TestMintRightNotRestoredAfterSale(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.FundedActor(t, tm.Bank, 1000)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)
	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(100)))
	require.NoError(t, tm.Market.Buy(bob.Public, id, big.NewInt(100)))

	owner, err := tm.Market.OwnerOf(id)
	require.NoError(t, err)
	assert.True(t, owner.Equal(bob.Public))

	// Alice no longer owns a token but still cannot mint again.
	_, err = tm.Market.Mint(alice.Public, "")
	assert.ErrorIs(t, err, protocol.ErrAlreadyMinted)
}

func TestTokenIDsAreSequential(t *testing.T) {
	tm := testutil.NewTestMarket(t)

	for want := protocol.TokenID(1); want <= 3; want++ {
		actor := testutil.NewActor(t)
		id, err := tm.Market.Mint(actor.Public, "")
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestListValidation(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	mallory := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)

	err = tm.Market.List(alice.Public, 99, big.NewInt(100))
	assert.ErrorIs(t, err, protocol.ErrUnknownToken)

	err = tm.Market.List(mallory.Public, id, big.NewInt(100))
	assert.ErrorIs(t, err, protocol.ErrNotOwner)

	err = tm.Market.List(alice.Public, id, big.NewInt(0))
	assert.ErrorIs(t, err, protocol.ErrInvalidPrice)

	err = tm.Market.List(alice.Public, id, nil)
	assert.ErrorIs(t, err, protocol.ErrInvalidPrice)

	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(100)))

	listing := tm.Market.GetListing(id)
	require.NotNil(t, listing)
	assert.True(t, listing.Active)
	assert.Equal(t, "100", listing.Price.String())
	assert.True(t, listing.Seller.Equal(alice.Public))
}

func TestRelistReplacesPrice(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)
	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(100)))
	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(250)))

	listing := tm.Market.GetListing(id)
	require.NotNil(t, listing)
	assert.Equal(t, "250", listing.Price.String())
	assert.True(t, listing.Active)
}

func TestCancelListing(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	mallory := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)

	err = tm.Market.Cancel(alice.Public, id)
	assert.ErrorIs(t, err, protocol.ErrNotActive)

	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(100)))

	err = tm.Market.Cancel(mallory.Public, id)
	assert.ErrorIs(t, err, protocol.ErrNotOwner)

	require.NoError(t, tm.Market.Cancel(alice.Public, id))
	assert.False(t, tm.Market.GetListing(id).Active)

	err = tm.Market.Cancel(alice.Public, id)
	assert.ErrorIs(t, err, protocol.ErrNotActive)
}

func TestActiveListingsSnapshot(t *testing.T) {
	tm := testutil.NewTestMarket(t)

	var ids []protocol.TokenID
	for i := 0; i < 3; i++ {
		actor := testutil.NewActor(t)
		id, err := tm.Market.Mint(actor.Public, "")
		require.NoError(t, err)
		require.NoError(t, tm.Market.List(actor.Public, id, big.NewInt(int64(100+i))))
		ids = append(ids, id)
	}

	// Deactivate the middle one.
	mid := tm.Market.GetListing(ids[1])
	owner, err := tm.Market.OwnerOf(ids[1])
	require.NoError(t, err)
	require.True(t, mid.Seller.Equal(owner))
	require.NoError(t, tm.Market.Cancel(owner, ids[1]))

	listings := tm.Market.ActiveListings()
	require.Len(t, listings, 2)
	assert.Equal(t, ids[0], listings[0].TokenID)
	assert.Equal(t, ids[2], listings[1].TokenID)

	// Mutating the returned copies does not touch market state.
	listings[0].Price.SetInt64(1)
	assert.Equal(t, "100", tm.Market.GetListing(ids[0]).Price.String())
}

func TestPlaceBidRequiresActiveListingAndValidProof(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)

	handle, proof := tm.SealedBid(500, bob)

	err = tm.Market.PlaceBid(bob.Public, id, handle, proof)
	assert.ErrorIs(t, err, protocol.ErrListingNotActive)

	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(100)))

	err = tm.Market.PlaceBid(bob.Public, id, handle, []byte("garbage"))
	assert.ErrorIs(t, err, protocol.ErrInvalidProof)

	require.NoError(t, tm.Market.PlaceBid(bob.Public, id, handle, proof))

	bids := tm.Market.Bids(id)
	require.Len(t, bids, 1)
	assert.True(t, bids[0].Bidder.Equal(bob.Public))
	assert.True(t, bids[0].Seller.Equal(alice.Public))
	assert.Equal(t, handle, bids[0].Handle)
}

func TestBidsKeepSubmissionOrderAndAllowDuplicates(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)
	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(100)))

	var handles []protocol.Handle
	for i := 0; i < 3; i++ {
		// Same bidder, same value; each bid still gets its own entry.
		handle, proof := tm.SealedBid(42, bob)
		require.NoError(t, tm.Market.PlaceBid(bob.Public, id, handle, proof))
		handles = append(handles, handle)
	}

	bids := tm.Market.Bids(id)
	require.Len(t, bids, 3)
	for i, bid := range bids {
		assert.Equal(t, handles[i], bid.Handle)
	}
}

func TestBuySettlesAtomically(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.FundedActor(t, tm.Bank, 1000)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)
	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(300)))

	err = tm.Market.Buy(bob.Public, id, big.NewInt(299))
	assert.ErrorIs(t, err, protocol.ErrInsufficientPayment)

	require.NoError(t, tm.Market.Buy(bob.Public, id, big.NewInt(300)))

	// Exactly the asking price moved.
	assert.Equal(t, "700", tm.Bank.Balance(bob.Public).String())
	assert.Equal(t, "300", tm.Bank.Balance(alice.Public).String())

	owner, err := tm.Market.OwnerOf(id)
	require.NoError(t, err)
	assert.True(t, owner.Equal(bob.Public))

	listing := tm.Market.GetListing(id)
	assert.False(t, listing.Active)
	assert.True(t, listing.Seller.IsZero())

	err = tm.Market.Buy(bob.Public, id, big.NewInt(300))
	assert.ErrorIs(t, err, protocol.ErrListingNotActive)
}

func TestBuyFailedTransferLeavesStateUntouched(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	broke := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)
	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(300)))

	err = tm.Market.Buy(broke.Public, id, big.NewInt(300))
	require.Error(t, err)

	owner, err := tm.Market.OwnerOf(id)
	require.NoError(t, err)
	assert.True(t, owner.Equal(alice.Public))
	assert.True(t, tm.Market.GetListing(id).Active)
}

func TestConcurrentBuysExactlyOneWins(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "")
	require.NoError(t, err)
	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(100)))

	const buyers = 8
	results := make([]error, buyers)
	actors := make([]*testutil.Actor, buyers)
	for i := range actors {
		actors[i] = testutil.FundedActor(t, tm.Bank, 100)
	}

	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = tm.Market.Buy(actors[i].Public, id, big.NewInt(100))
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range results {
		if err == nil {
			winners++
			owner, oerr := tm.Market.OwnerOf(id)
			require.NoError(t, oerr)
			assert.True(t, owner.Equal(actors[i].Public))
		} else {
			assert.ErrorIs(t, err, protocol.ErrListingNotActive)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, "100", tm.Bank.Balance(alice.Public).String())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	tm := testutil.NewTestMarket(t)
	alice := testutil.NewActor(t)
	bob := testutil.NewActor(t)

	id, err := tm.Market.Mint(alice.Public, "ipfs://art")
	require.NoError(t, err)
	require.NoError(t, tm.Market.List(alice.Public, id, big.NewInt(100)))
	handle, proof := tm.SealedBid(7, bob)
	require.NoError(t, tm.Market.PlaceBid(bob.Public, id, handle, proof))

	state := tm.Market.Snapshot()

	restored, err := protocol.NewMarketFromState(
		protocol.DefaultMarketConfig(testutil.TestContextID), tm.Gateway, tm.Bank, state)
	require.NoError(t, err)

	// Mint rights carry over.
	_, err = restored.Mint(alice.Public, "")
	assert.ErrorIs(t, err, protocol.ErrAlreadyMinted)

	// A fresh mint continues the id sequence.
	carol := testutil.NewActor(t)
	next, err := restored.Mint(carol.Public, "")
	require.NoError(t, err)
	assert.Equal(t, id+1, next)

	assert.True(t, restored.GetListing(id).Active)
	bids := restored.Bids(id)
	require.Len(t, bids, 1)
	assert.Equal(t, handle, bids[0].Handle)
}
