// Command market-cli is a command-line client for a running marketplace.
//
// All mutating commands sign with the key given via --key (hex Ed25519
// private key); "keygen" prints a fresh one. The bid command encrypts the
// value at the engine first and only ever submits the resulting handle.
//
// # Usage
//
//	market-cli keygen
//	market-cli --key=<hex> mint --uri=ipfs://...
//	market-cli --key=<hex> list --token=1 --price=1000000
//	market-cli --key=<hex> bid --token=1 --value=20000
//	market-cli --key=<hex> buy --token=1 --payment=1000000
//	market-cli --key=<hex> decrypt --token=1
//	market-cli listings
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/oscaryu0/VaultArt/cmd/common"
	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/gateway"
	"github.com/oscaryu0/VaultArt/protocol"
	"github.com/oscaryu0/VaultArt/services"
)

func main() {
	var (
		marketURL  = flag.String("market", "http://localhost:8080", "Marketplace URL")
		gatewayURL = flag.String("gateway", "http://localhost:8888", "Encryption engine URL")
		keyHex     = flag.String("key", "", "Ed25519 signing key (hex)")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: market-cli [flags] <keygen|mint|list|cancel|buy|bid|decrypt|deposit|listings|bids|balance>")
		os.Exit(2)
	}

	cli := &client{
		marketURL:  *marketURL,
		gatewayURL: *gatewayURL,
		http:       &http.Client{Timeout: 30 * time.Second},
	}

	command := flag.Arg(0)
	if command == "keygen" {
		pub, priv, err := crypto.GenerateKeyPair()
		fatalIf(err)
		fmt.Printf("private key: %s\n", hex.EncodeToString(priv))
		fmt.Printf("identity:    %s\n", pub)
		return
	}

	key, err := common.LoadOrGenerateSigningKey(*keyHex)
	fatalIf(err)
	cli.key = key
	cli.identity, err = key.PublicKey()
	fatalIf(err)

	sub := flag.NewFlagSet(command, flag.ExitOnError)
	var (
		uri     = sub.String("uri", "", "Artwork metadata URI")
		token   = sub.Uint64("token", 0, "Token id")
		price   = sub.String("price", "", "Listing price")
		payment = sub.String("payment", "", "Payment amount")
		value   = sub.String("value", "", "Bid value to encrypt")
		amount  = sub.String("amount", "", "Deposit amount")
	)
	sub.Parse(flag.Args()[1:])

	switch command {
	case "mint":
		cli.mint(*uri)
	case "list":
		cli.list(protocol.TokenID(*token), *price)
	case "cancel":
		cli.cancel(protocol.TokenID(*token))
	case "buy":
		cli.buy(protocol.TokenID(*token), *payment)
	case "bid":
		cli.bid(protocol.TokenID(*token), *value)
	case "decrypt":
		cli.decrypt(protocol.TokenID(*token))
	case "deposit":
		cli.deposit(*amount)
	case "listings":
		cli.listings()
	case "bids":
		cli.bids(protocol.TokenID(*token))
	case "balance":
		cli.balance()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(2)
	}
}

type client struct {
	marketURL  string
	gatewayURL string
	http       *http.Client
	key        crypto.PrivateKey
	identity   crypto.PublicKey
}

func (c *client) mint(uri string) {
	var resp services.MintResponse
	c.postSigned("/market/mint", &services.MintRequest{URI: uri}, &resp)
	fmt.Printf("minted token %d to %s\n", resp.TokenID, c.identity)
}

func (c *client) list(token protocol.TokenID, price string) {
	var resp services.StatusResponse
	c.postSigned("/market/list", &services.ListRequest{TokenID: token, Price: price}, &resp)
	fmt.Printf("token %d listed at %s\n", token, price)
}

func (c *client) cancel(token protocol.TokenID) {
	var resp services.StatusResponse
	c.postSigned("/market/cancel", &services.CancelRequest{TokenID: token}, &resp)
	fmt.Printf("listing for token %d cancelled\n", token)
}

func (c *client) buy(token protocol.TokenID, payment string) {
	var resp services.StatusResponse
	c.postSigned("/market/buy", &services.BuyRequest{TokenID: token, Payment: payment}, &resp)
	fmt.Printf("token %d bought\n", token)
}

func (c *client) bid(token protocol.TokenID, value string) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		fatalIf(fmt.Errorf("malformed bid value %q", value))
	}

	engine := gateway.NewHTTPGateway(c.gatewayURL, slog.Default())
	handle, proof, err := engine.Encrypt(context.Background(), amount, c.identity)
	fatalIf(err)

	var resp services.StatusResponse
	c.postSigned("/market/bid", &services.PlaceBidRequest{
		TokenID: token,
		Handle:  handle,
		Proof:   hex.EncodeToString(proof),
	}, &resp)
	fmt.Printf("sealed bid placed on token %d (handle %s)\n", token, handle)
}

// decrypt builds and signs a decryption authorization for every sealed bid
// on the token, then submits it through the marketplace.
func (c *client) decrypt(token protocol.TokenID) {
	config, err := common.FetchMarketConfig(c.marketURL)
	fatalIf(err)

	var bidsResp services.BidsResponse
	c.get(fmt.Sprintf("/market/bids/%d", token), &bidsResp)
	if len(bidsResp.Bids) == 0 {
		fmt.Printf("no bids on token %d\n", token)
		return
	}

	handles := make([]protocol.Handle, 0, len(bidsResp.Bids))
	for _, bid := range bidsResp.Bids {
		handles = append(handles, bid.Handle)
	}

	ephemeralPub, ephemeralPriv, err := crypto.GenerateKeyPair()
	fatalIf(err)

	auth := &protocol.DecryptionAuthorization{
		Requester:          c.identity,
		Handles:            handles,
		ContextID:          config.ContextID,
		ValidFrom:          time.Now().UTC(),
		ValidDuration:      config.AuthorizationValidity,
		EphemeralPublicKey: ephemeralPub,
	}

	canonical, err := protocol.SerializeMessage(auth)
	fatalIf(err)
	signature, err := crypto.Sign(c.key, canonical)
	fatalIf(err)

	var resp services.DecryptResponse
	c.postSigned("/market/decrypt", &services.DecryptRequest{
		Authorization:        auth,
		AttestationSignature: signature,
		EphemeralKey:         hex.EncodeToString(ephemeralPriv),
	}, &resp)

	for _, bid := range bidsResp.Bids {
		fmt.Printf("bid %s from %s: %s\n", bid.Handle, bid.Bidder, resp.Values[bid.Handle])
	}
}

func (c *client) deposit(amount string) {
	var resp services.StatusResponse
	c.postSigned("/market/deposit", &services.DepositRequest{Amount: amount}, &resp)
	fmt.Printf("deposited %s\n", amount)
}

func (c *client) listings() {
	var resp services.ListingsResponse
	c.get("/market/listings", &resp)
	for _, listing := range resp.Listings {
		fmt.Printf("token %d: %s (seller %s)\n", listing.TokenID, listing.Price, listing.Seller)
	}
}

func (c *client) bids(token protocol.TokenID) {
	var resp services.BidsResponse
	c.get(fmt.Sprintf("/market/bids/%d", token), &resp)
	for _, bid := range resp.Bids {
		fmt.Printf("%s  bidder %s  handle %s\n", bid.Timestamp.Format(time.RFC3339), bid.Bidder, bid.Handle)
	}
}

func (c *client) balance() {
	var resp services.BalanceResponse
	c.get("/market/balance/"+c.identity.String(), &resp)
	fmt.Printf("balance: %s\n", resp.Balance)
}

func (c *client) postSigned(path string, obj any, out any) {
	body, err := signEnvelope(c.key, obj)
	fatalIf(err)

	resp, err := c.http.Post(c.marketURL+path, "application/json", bytes.NewReader(body))
	fatalIf(err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var status services.StatusResponse
		json.NewDecoder(resp.Body).Decode(&status)
		fatalIf(fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, status.Error))
	}
	fatalIf(json.NewDecoder(resp.Body).Decode(out))
}

func (c *client) get(path string, out any) {
	resp, err := c.http.Get(c.marketURL + path)
	fatalIf(err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fatalIf(fmt.Errorf("%s: status %d", path, resp.StatusCode))
	}
	fatalIf(json.NewDecoder(resp.Body).Decode(out))
}

// signEnvelope wraps obj in a signed envelope and marshals it. Signing is
// generic over the concrete request type, so reflect through an interface
// is not an option here.
func signEnvelope(key crypto.PrivateKey, obj any) ([]byte, error) {
	switch req := obj.(type) {
	case *services.MintRequest:
		return marshalSigned(key, req)
	case *services.ListRequest:
		return marshalSigned(key, req)
	case *services.CancelRequest:
		return marshalSigned(key, req)
	case *services.BuyRequest:
		return marshalSigned(key, req)
	case *services.PlaceBidRequest:
		return marshalSigned(key, req)
	case *services.DecryptRequest:
		return marshalSigned(key, req)
	case *services.DepositRequest:
		return marshalSigned(key, req)
	}
	return nil, fmt.Errorf("unsupported request type %T", obj)
}

func marshalSigned[T any](key crypto.PrivateKey, obj *T) ([]byte, error) {
	signed, err := protocol.NewSigned(key, obj)
	if err != nil {
		return nil, err
	}
	return json.Marshal(signed)
}

func fatalIf(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
