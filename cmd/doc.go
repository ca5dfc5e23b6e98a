// Package cmd contains the VaultArt binaries:
//
//   - marketd: the marketplace service
//   - demo-gateway: an HTTP encryption engine backed by the deterministic mock
//   - market-cli: a command-line client for minting, listing, bidding,
//     buying, and decrypting
package cmd
