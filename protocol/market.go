package protocol

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/oscaryu0/VaultArt/crypto"
)

// Market is the marketplace core: token registry, listing manager, bid
// ledger, and settlement engine over shared state.
//
// All mutating operations are serialized behind one write lock and commit
// as a unit, bumping a global commit sequence; no operation can observe
// another's intermediate state. Reads take the read lock and return copies,
// which gives them snapshot semantics under concurrent appends.
type Market struct {
	config  *MarketConfig
	gateway Gateway
	funds   ValueTransfer

	mu        sync.RWMutex
	commitSeq uint64

	nextTokenID TokenID
	tokens      map[TokenID]*ArtToken
	mintedBy    map[string]TokenID // identity -> the one token ever minted to it
	listings    map[TokenID]*Listing
	bids        map[TokenID][]*EncryptedBid
	bidByHandle map[Handle]*EncryptedBid
}

// NewMarket creates an empty marketplace with the given capabilities.
func NewMarket(config *MarketConfig, gateway Gateway, funds ValueTransfer) (*Market, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway cannot be nil")
	}
	if funds == nil {
		return nil, fmt.Errorf("value transfer substrate cannot be nil")
	}

	return &Market{
		config:      config,
		gateway:     gateway,
		funds:       funds,
		nextTokenID: 1,
		tokens:      make(map[TokenID]*ArtToken),
		mintedBy:    make(map[string]TokenID),
		listings:    make(map[TokenID]*Listing),
		bids:        make(map[TokenID][]*EncryptedBid),
		bidByHandle: make(map[Handle]*EncryptedBid),
	}, nil
}

// Config returns the deployment configuration.
func (m *Market) Config() *MarketConfig {
	return m.config
}

// CommitSeq returns the sequence number of the last committed mutation.
func (m *Market) CommitSeq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commitSeq
}

// Mint assigns the next token id to identity. Each identity may mint once,
// ever: the right is not restored when the token is later sold.
func (m *Market) Mint(identity crypto.PublicKey, uri string) (TokenID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := identity.String()
	if prev, ok := m.mintedBy[key]; ok {
		return 0, fmt.Errorf("%w: identity %s already minted token %d", ErrAlreadyMinted, key, prev)
	}

	id := m.nextTokenID
	m.nextTokenID++
	m.tokens[id] = &ArtToken{ID: id, Owner: identity, Minter: identity, URI: uri}
	m.mintedBy[key] = id
	m.commitSeq++

	return id, nil
}

// OwnerOf returns the current owner of a token.
func (m *Market) OwnerOf(id TokenID) (crypto.PublicKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[id]
	if !ok {
		return nil, fmt.Errorf("%w: token %d", ErrUnknownToken, id)
	}
	return token.Owner, nil
}

// TokenOf returns the one token minted to identity, or 0 if none.
func (m *Market) TokenOf(identity crypto.PublicKey) TokenID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mintedBy[identity.String()]
}

// TokenURI returns the metadata URI recorded at mint.
func (m *Market) TokenURI(id TokenID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[id]
	if !ok {
		return "", fmt.Errorf("%w: token %d", ErrUnknownToken, id)
	}
	return token.URI, nil
}

// GetToken returns a copy of the token record, or nil if unknown.
func (m *Market) GetToken(id TokenID) *ArtToken {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[id]
	if !ok {
		return nil
	}
	c := *token
	return &c
}

// List puts a token up for sale at a public price, or replaces the price if
// the listing is already active. Only the current owner may list.
func (m *Market) List(identity crypto.PublicKey, id TokenID, price *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[id]
	if !ok {
		return fmt.Errorf("%w: token %d", ErrUnknownToken, id)
	}
	if !token.Owner.Equal(identity) {
		return fmt.Errorf("%w: token %d is not owned by %s", ErrNotOwner, id, identity)
	}
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("%w: token %d listed at %v", ErrInvalidPrice, id, price)
	}

	m.listings[id] = &Listing{
		TokenID: id,
		Seller:  identity,
		Price:   new(big.Int).Set(price),
		Active:  true,
	}
	m.commitSeq++

	return nil
}

// Cancel deactivates an active listing. Only the seller may cancel.
func (m *Market) Cancel(identity crypto.PublicKey, id TokenID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[id]
	if !ok {
		return fmt.Errorf("%w: token %d", ErrUnknownToken, id)
	}
	if !token.Owner.Equal(identity) {
		return fmt.Errorf("%w: token %d is not owned by %s", ErrNotOwner, id, identity)
	}

	listing, ok := m.listings[id]
	if !ok || !listing.Active {
		return fmt.Errorf("%w: token %d", ErrNotActive, id)
	}

	listing.Active = false
	m.commitSeq++

	return nil
}

// GetListing returns a copy of the current listing record for a token, or
// nil if the token was never listed.
func (m *Market) GetListing(id TokenID) *Listing {
	m.mu.RLock()
	defer m.mu.RUnlock()

	listing, ok := m.listings[id]
	if !ok {
		return nil
	}
	return copyListing(listing)
}

// ActiveListings returns all active listings ordered by token id ascending.
// The result is a consistent snapshot: concurrent mutations do not affect
// an already-returned slice.
func (m *Market) ActiveListings() []*Listing {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Listing, 0, len(m.listings))
	for _, listing := range m.listings {
		if listing.Active {
			result = append(result, copyListing(listing))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TokenID < result[j].TokenID })

	return result
}

// PlaceBid appends a sealed offer to the token's bid log. The listing must
// be active and the Gateway must accept the ciphertext correctness proof;
// the core never inspects the ciphertext itself. Multiple bids per bidder
// are allowed and all remain visible.
//
// Bidding on one's own listing is not restricted at this layer; callers
// enforce such policy if they want it.
func (m *Market) PlaceBid(bidder crypto.PublicKey, id TokenID, handle Handle, proof CorrectnessProof) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	listing, ok := m.listings[id]
	if !ok || !listing.Active {
		return fmt.Errorf("%w: token %d", ErrListingNotActive, id)
	}

	if !m.gateway.VerifyProof(handle, proof) {
		return fmt.Errorf("%w: handle %s on token %d", ErrInvalidProof, handle, id)
	}

	bid := &EncryptedBid{
		TokenID:   id,
		Bidder:    bidder,
		Seller:    listing.Seller,
		Handle:    handle,
		Proof:     proof,
		Timestamp: time.Now().UTC(),
	}
	m.bids[id] = append(m.bids[id], bid)
	m.bidByHandle[handle] = bid
	m.commitSeq++

	return nil
}

// Bids returns the token's sealed offers in submission order. Ciphertext
// handles are returned as stored; the ledger never decrypts.
func (m *Market) Bids(id TokenID) []*EncryptedBid {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bids := m.bids[id]
	result := make([]*EncryptedBid, len(bids))
	for i, bid := range bids {
		c := *bid
		result[i] = &c
	}
	return result
}

// Buy settles a purchase: exactly the listing price moves from buyer to
// seller, ownership transfers, and the listing deactivates, as one atomic
// unit. Overpayment is accepted and retained by the payer; no refund is
// modeled here. Under competing concurrent purchases exactly one succeeds
// and the rest observe ErrListingNotActive.
func (m *Market) Buy(buyer crypto.PublicKey, id TokenID, paid *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	listing, ok := m.listings[id]
	if !ok || !listing.Active {
		return fmt.Errorf("%w: token %d", ErrListingNotActive, id)
	}
	if paid == nil || paid.Cmp(listing.Price) < 0 {
		return fmt.Errorf("%w: token %d costs %s, got %v", ErrInsufficientPayment, id, listing.Price, paid)
	}

	// The transfer is the one step that can still fail; it runs before any
	// state is touched so a rejected payment leaves nothing to unwind.
	if err := m.funds.Transfer(buyer, listing.Seller, listing.Price); err != nil {
		return fmt.Errorf("settlement transfer for token %d: %w", id, err)
	}

	m.tokens[id].Owner = buyer
	listing.Active = false
	listing.Seller = nil
	m.commitSeq++

	return nil
}

func copyListing(l *Listing) *Listing {
	c := *l
	if l.Price != nil {
		c.Price = new(big.Int).Set(l.Price)
	}
	return &c
}
