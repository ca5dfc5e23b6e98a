// Package testutil provides shared fixtures for marketplace tests: funded
// actors, a market wired to the mock encryption engine, and signing helpers.
package testutil

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/gateway"
	"github.com/oscaryu0/VaultArt/protocol"
	"github.com/oscaryu0/VaultArt/services"
)

// TestContextID is the engine context used across tests.
const TestContextID = "vaultart-test"

// Actor is a test identity with its keys and signer capability.
type Actor struct {
	Public  crypto.PublicKey
	Private crypto.PrivateKey
	Signer  *crypto.LocalSigner
}

// NewActor generates a fresh identity.
func NewActor(t *testing.T) *Actor {
	t.Helper()

	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	return &Actor{
		Public:  pub,
		Private: priv,
		Signer:  crypto.NewLocalSigner(priv),
	}
}

// FundedActor generates an identity and credits its balance.
func FundedActor(t *testing.T, bank *services.Bank, amount int64) *Actor {
	t.Helper()

	actor := NewActor(t)
	bank.Deposit(actor.Public, big.NewInt(amount))
	return actor
}

// TestMarket bundles a market with the capabilities it was wired to.
type TestMarket struct {
	Market  *protocol.Market
	Gateway *gateway.MockGateway
	Bank    *services.Bank
}

// NewTestMarket creates a market on the mock engine with an empty bank.
func NewTestMarket(t *testing.T) *TestMarket {
	t.Helper()

	mock := gateway.NewMockGateway(TestContextID)
	bank := services.NewBank()

	market, err := protocol.NewMarket(protocol.DefaultMarketConfig(TestContextID), mock, bank)
	require.NoError(t, err)

	return &TestMarket{
		Market:  market,
		Gateway: mock,
		Bank:    bank,
	}
}

// SealedBid encrypts a value on the mock engine and returns handle and proof.
func (tm *TestMarket) SealedBid(value int64, bidder *Actor) (protocol.Handle, protocol.CorrectnessProof) {
	return tm.Gateway.Encrypt(big.NewInt(value), bidder.Public)
}

// MustSign wraps an object in a signed envelope for the given actor.
func MustSign[T any](t *testing.T, actor *Actor, obj *T) *protocol.Signed[T] {
	t.Helper()

	signed, err := protocol.NewSigned(actor.Private, obj)
	require.NoError(t, err)
	return signed
}
