package services

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/protocol"
)

// FundsLedger is the settlement substrate plus the demo faucet operations
// the API exposes around it.
type FundsLedger interface {
	protocol.ValueTransfer
	Deposit(account crypto.PublicKey, amount *big.Int)
	Balance(account crypto.PublicKey) *big.Int
}

// Bank is an in-memory FundsLedger. Real deployments would settle against
// an external payment system; the marketplace core only needs Transfer.
type Bank struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

// NewBank creates an empty ledger.
func NewBank() *Bank {
	return &Bank{balances: make(map[string]*big.Int)}
}

// Deposit credits an account.
func (b *Bank) Deposit(account crypto.PublicKey, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(account.String(), amount)
}

// Balance returns an account's current balance.
func (b *Bank) Balance(account crypto.PublicKey) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	balance, ok := b.balances[account.String()]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

// Transfer moves amount from one account to another, atomically. It fails
// without effect if the payer cannot cover the amount.
func (b *Bank) Transfer(from, to crypto.PublicKey, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount %v", amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fromKey := from.String()
	balance, ok := b.balances[fromKey]
	if !ok || balance.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient funds: account %s holds %s, needs %s", fromKey, balance, amount)
	}

	balance.Sub(balance, amount)
	b.credit(to.String(), amount)
	return nil
}

func (b *Bank) credit(account string, amount *big.Int) {
	balance, ok := b.balances[account]
	if !ok {
		balance = new(big.Int)
		b.balances[account] = balance
	}
	balance.Add(balance, amount)
}
