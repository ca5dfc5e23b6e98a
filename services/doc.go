// Package services implements the marketplace service layer: the HTTP
// handler exposing signed market operations, the persistence stores, and
// the demo funds ledger backing settlement.
//
// Requests that mutate market state arrive as protocol.Signed envelopes;
// the handler recovers the signer and uses it as the acting identity, so
// there is no session state and no way to act for another key.
package services
