package services

import (
	"sync"

	"github.com/oscaryu0/VaultArt/protocol"
)

// MarketStore persists market records so a restarted service can rebuild
// its state. The in-memory Market remains the source of truth while
// running; the store is written through on each committed mutation.
type MarketStore interface {
	SaveToken(token *protocol.ArtToken) error
	SaveListing(listing *protocol.Listing) error
	SaveBid(bid *protocol.EncryptedBid) error

	// LoadState returns everything persisted, with bids in submission order.
	LoadState() (*protocol.MarketState, error)

	Close() error
}

// InMemoryStore implements MarketStore for tests and storeless demo runs.
type InMemoryStore struct {
	mu       sync.Mutex
	tokens   map[protocol.TokenID]*protocol.ArtToken
	listings map[protocol.TokenID]*protocol.Listing
	bids     []*protocol.EncryptedBid
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tokens:   make(map[protocol.TokenID]*protocol.ArtToken),
		listings: make(map[protocol.TokenID]*protocol.Listing),
	}
}

// SaveToken stores a token record, replacing any previous version.
func (s *InMemoryStore) SaveToken(token *protocol.ArtToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *token
	s.tokens[c.ID] = &c
	return nil
}

// SaveListing stores the current listing record for a token.
func (s *InMemoryStore) SaveListing(listing *protocol.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *listing
	s.listings[c.TokenID] = &c
	return nil
}

// SaveBid appends a bid record.
func (s *InMemoryStore) SaveBid(bid *protocol.EncryptedBid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *bid
	s.bids = append(s.bids, &c)
	return nil
}

// LoadState returns a snapshot of everything stored.
func (s *InMemoryStore) LoadState() (*protocol.MarketState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := &protocol.MarketState{
		Tokens:   make([]*protocol.ArtToken, 0, len(s.tokens)),
		Listings: make([]*protocol.Listing, 0, len(s.listings)),
		Bids:     make([]*protocol.EncryptedBid, 0, len(s.bids)),
	}
	for _, token := range s.tokens {
		c := *token
		state.Tokens = append(state.Tokens, &c)
	}
	for _, listing := range s.listings {
		c := *listing
		state.Listings = append(state.Listings, &c)
	}
	for _, bid := range s.bids {
		c := *bid
		state.Bids = append(state.Bids, &c)
	}
	return state, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
