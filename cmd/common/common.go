// Package common provides shared utilities for VaultArt CLI commands.
//
// This package contains helper functions used across the standalone
// binaries (marketd, demo-gateway, market-cli) to reduce code duplication:
//
//   - Key loading and generation for Ed25519 signing keys
//   - Configuration fetching from a running marketplace
//   - Structured logger construction
package common

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/protocol"
)

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// FetchMarketConfig retrieves configuration from a marketplace's /config endpoint.
func FetchMarketConfig(marketURL string) (*protocol.MarketConfig, error) {
	resp, err := http.Get(marketURL + "/config")
	if err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marketplace returned status %d", resp.StatusCode)
	}

	config, err := protocol.DecodeMessage[protocol.MarketConfig](resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return config, nil
}

// NewLogger builds the structured logger the binaries share. JSON output
// is for production collectors; text for terminals.
func NewLogger(json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
