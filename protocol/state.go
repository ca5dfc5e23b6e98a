package protocol

import (
	"fmt"
	"sort"
)

// MarketState is a full snapshot of the marketplace tables, used for
// persistence. Bids are ordered as submitted.
type MarketState struct {
	Tokens   []*ArtToken     `json:"tokens"`
	Listings []*Listing      `json:"listings"`
	Bids     []*EncryptedBid `json:"bids"`
}

// Snapshot returns a deep copy of the current state, consistent as of one
// commit.
func (m *Market) Snapshot() *MarketState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := &MarketState{
		Tokens:   make([]*ArtToken, 0, len(m.tokens)),
		Listings: make([]*Listing, 0, len(m.listings)),
	}

	for _, token := range m.tokens {
		c := *token
		state.Tokens = append(state.Tokens, &c)
	}
	sort.Slice(state.Tokens, func(i, j int) bool { return state.Tokens[i].ID < state.Tokens[j].ID })

	for _, listing := range m.listings {
		state.Listings = append(state.Listings, copyListing(listing))
	}
	sort.Slice(state.Listings, func(i, j int) bool { return state.Listings[i].TokenID < state.Listings[j].TokenID })

	ids := make([]TokenID, 0, len(m.bids))
	for id := range m.bids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		for _, bid := range m.bids[id] {
			c := *bid
			state.Bids = append(state.Bids, &c)
		}
	}

	return state
}

// NewMarketFromState rebuilds a marketplace from a snapshot. Derived
// indexes (mint rights, handle lookup, next token id) are reconstructed
// from the snapshot's records.
func NewMarketFromState(config *MarketConfig, gateway Gateway, funds ValueTransfer, state *MarketState) (*Market, error) {
	m, err := NewMarket(config, gateway, funds)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return m, nil
	}

	for _, token := range state.Tokens {
		c := *token
		m.tokens[c.ID] = &c
		if len(c.Minter) > 0 {
			m.mintedBy[c.Minter.String()] = c.ID
		}
		if c.ID >= m.nextTokenID {
			m.nextTokenID = c.ID + 1
		}
	}

	for _, listing := range state.Listings {
		if _, ok := m.tokens[listing.TokenID]; !ok {
			return nil, fmt.Errorf("%w: listing references token %d", ErrUnknownToken, listing.TokenID)
		}
		m.listings[listing.TokenID] = copyListing(listing)
	}

	for _, bid := range state.Bids {
		if _, ok := m.tokens[bid.TokenID]; !ok {
			return nil, fmt.Errorf("%w: bid references token %d", ErrUnknownToken, bid.TokenID)
		}
		c := *bid
		m.bids[c.TokenID] = append(m.bids[c.TokenID], &c)
		m.bidByHandle[c.Handle] = &c
	}

	return m, nil
}
