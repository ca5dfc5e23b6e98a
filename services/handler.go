package services

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oscaryu0/VaultArt/crypto"
	"github.com/oscaryu0/VaultArt/metrics"
	"github.com/oscaryu0/VaultArt/protocol"
)

// MarketHandler exposes the marketplace over HTTP. Mutations arrive as
// signed envelopes and act as the recovered signer; reads are open.
type MarketHandler struct {
	market *protocol.Market
	store  MarketStore
	funds  FundsLedger
	log    *slog.Logger
}

// NewMarketHandler creates the handler. The store receives a write-through
// copy of every committed mutation; pass an InMemoryStore for storeless runs.
func NewMarketHandler(market *protocol.Market, store MarketStore, funds FundsLedger, log *slog.Logger) *MarketHandler {
	return &MarketHandler{
		market: market,
		store:  store,
		funds:  funds,
		log:    log,
	}
}

// RegisterRoutes registers all market routes.
func (h *MarketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/config", h.handleConfig)

	r.Route("/market", func(r chi.Router) {
		r.Post("/mint", h.handleMint)
		r.Post("/list", h.handleList)
		r.Post("/cancel", h.handleCancel)
		r.Post("/buy", h.handleBuy)
		r.Post("/bid", h.handlePlaceBid)
		r.Post("/decrypt", h.handleDecrypt)
		r.Post("/deposit", h.handleDeposit)

		r.Get("/listings", h.handleListings)
		r.Get("/listing/{token_id}", h.handleGetListing)
		r.Get("/bids/{token_id}", h.handleGetBids)
		r.Get("/token/{token_id}", h.handleGetToken)
		r.Get("/token-of/{identity}", h.handleTokenOf)
		r.Get("/balance/{identity}", h.handleBalance)
	})
}

func (h *MarketHandler) handleConfig(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, h.market.Config())
}

func (h *MarketHandler) handleMint(w http.ResponseWriter, req *http.Request) {
	metrics.RequestCounter("marketd", "mint").Inc()

	mintReq, actor, err := recoverSigned[MintRequest](req)
	if err != nil {
		h.fail(w, "mint", http.StatusForbidden, err)
		return
	}

	id, err := h.market.Mint(actor, mintReq.URI)
	if err != nil {
		h.fail(w, "mint", statusFor(err), err)
		return
	}

	h.persistToken(id)
	h.log.Info("token minted", "tokenID", id, "minter", actor)
	writeJSON(w, http.StatusOK, &MintResponse{TokenID: id})
}

func (h *MarketHandler) handleList(w http.ResponseWriter, req *http.Request) {
	metrics.RequestCounter("marketd", "list").Inc()

	listReq, actor, err := recoverSigned[ListRequest](req)
	if err != nil {
		h.fail(w, "list", http.StatusForbidden, err)
		return
	}

	price, err := parseAmount(listReq.Price)
	if err != nil {
		h.fail(w, "list", http.StatusBadRequest, err)
		return
	}

	if err := h.market.List(actor, listReq.TokenID, price); err != nil {
		h.fail(w, "list", statusFor(err), err)
		return
	}

	h.persistListing(listReq.TokenID)
	h.log.Info("token listed", "tokenID", listReq.TokenID, "price", price, "seller", actor)
	writeJSON(w, http.StatusOK, &StatusResponse{Success: true})
}

func (h *MarketHandler) handleCancel(w http.ResponseWriter, req *http.Request) {
	metrics.RequestCounter("marketd", "cancel").Inc()

	cancelReq, actor, err := recoverSigned[CancelRequest](req)
	if err != nil {
		h.fail(w, "cancel", http.StatusForbidden, err)
		return
	}

	if err := h.market.Cancel(actor, cancelReq.TokenID); err != nil {
		h.fail(w, "cancel", statusFor(err), err)
		return
	}

	h.persistListing(cancelReq.TokenID)
	h.log.Info("listing cancelled", "tokenID", cancelReq.TokenID, "seller", actor)
	writeJSON(w, http.StatusOK, &StatusResponse{Success: true})
}

func (h *MarketHandler) handleBuy(w http.ResponseWriter, req *http.Request) {
	metrics.RequestCounter("marketd", "buy").Inc()

	buyReq, actor, err := recoverSigned[BuyRequest](req)
	if err != nil {
		h.fail(w, "buy", http.StatusForbidden, err)
		return
	}

	payment, err := parseAmount(buyReq.Payment)
	if err != nil {
		h.fail(w, "buy", http.StatusBadRequest, err)
		return
	}

	if err := h.market.Buy(actor, buyReq.TokenID, payment); err != nil {
		h.fail(w, "buy", statusFor(err), err)
		return
	}

	h.persistToken(buyReq.TokenID)
	h.persistListing(buyReq.TokenID)
	h.log.Info("token sold", "tokenID", buyReq.TokenID, "buyer", actor)
	writeJSON(w, http.StatusOK, &StatusResponse{Success: true})
}

func (h *MarketHandler) handlePlaceBid(w http.ResponseWriter, req *http.Request) {
	metrics.RequestCounter("marketd", "bid").Inc()

	bidReq, actor, err := recoverSigned[PlaceBidRequest](req)
	if err != nil {
		h.fail(w, "bid", http.StatusForbidden, err)
		return
	}

	proof, err := hex.DecodeString(bidReq.Proof)
	if err != nil {
		h.fail(w, "bid", http.StatusBadRequest, fmt.Errorf("malformed proof: %w", err))
		return
	}

	if err := h.market.PlaceBid(actor, bidReq.TokenID, bidReq.Handle, proof); err != nil {
		h.fail(w, "bid", statusFor(err), err)
		return
	}

	h.persistBid(bidReq.TokenID, bidReq.Handle)
	h.log.Info("bid placed", "tokenID", bidReq.TokenID, "handle", bidReq.Handle, "bidder", actor)
	writeJSON(w, http.StatusOK, &StatusResponse{Success: true})
}

func (h *MarketHandler) handleDecrypt(w http.ResponseWriter, req *http.Request) {
	metrics.RequestCounter("marketd", "decrypt").Inc()

	decReq, actor, err := recoverSigned[DecryptRequest](req)
	if err != nil {
		h.fail(w, "decrypt", http.StatusForbidden, err)
		return
	}

	auth := decReq.Authorization
	if auth == nil {
		h.fail(w, "decrypt", http.StatusBadRequest, errors.New("missing authorization"))
		return
	}
	// The envelope signer must be the identity the authorization speaks for.
	if !actor.Equal(auth.Requester) {
		h.fail(w, "decrypt", http.StatusForbidden,
			fmt.Errorf("%w: envelope signed by %s, authorization names %s",
				protocol.ErrAuthorizationDenied, actor, auth.Requester))
		return
	}

	ephemeralBytes, err := hex.DecodeString(decReq.EphemeralKey)
	if err != nil {
		h.fail(w, "decrypt", http.StatusBadRequest, fmt.Errorf("malformed ephemeral key: %w", err))
		return
	}
	ephemeralKey := crypto.NewPrivateKeyFromBytes(ephemeralBytes)

	values, err := h.market.SubmitDecryption(req.Context(), auth, decReq.AttestationSignature, ephemeralKey)
	if err != nil {
		h.fail(w, "decrypt", statusFor(err), err)
		return
	}

	resp := &DecryptResponse{Values: make(map[protocol.Handle]string, len(values))}
	for handle, value := range values {
		resp.Values[handle] = value.String()
	}

	h.log.Info("bids decrypted", "requester", actor, "handles", len(values))
	writeJSON(w, http.StatusOK, resp)
}

func (h *MarketHandler) handleDeposit(w http.ResponseWriter, req *http.Request) {
	metrics.RequestCounter("marketd", "deposit").Inc()

	depositReq, actor, err := recoverSigned[DepositRequest](req)
	if err != nil {
		h.fail(w, "deposit", http.StatusForbidden, err)
		return
	}

	amount, err := parseAmount(depositReq.Amount)
	if err != nil {
		h.fail(w, "deposit", http.StatusBadRequest, err)
		return
	}

	h.funds.Deposit(actor, amount)
	writeJSON(w, http.StatusOK, &StatusResponse{Success: true})
}

func (h *MarketHandler) handleListings(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, &ListingsResponse{Listings: h.market.ActiveListings()})
}

func (h *MarketHandler) handleGetListing(w http.ResponseWriter, req *http.Request) {
	id, err := tokenIDParam(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	listing := h.market.GetListing(id)
	if listing == nil {
		http.Error(w, "token was never listed", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *MarketHandler) handleGetBids(w http.ResponseWriter, req *http.Request) {
	id, err := tokenIDParam(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, &BidsResponse{Bids: h.market.Bids(id)})
}

func (h *MarketHandler) handleGetToken(w http.ResponseWriter, req *http.Request) {
	id, err := tokenIDParam(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token := h.market.GetToken(id)
	if token == nil {
		http.Error(w, "unknown token", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, &TokenResponse{Token: token})
}

func (h *MarketHandler) handleTokenOf(w http.ResponseWriter, req *http.Request) {
	identity, err := crypto.NewPublicKeyFromString(chi.URLParam(req, "identity"))
	if err != nil {
		http.Error(w, "invalid identity", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, &TokenOfResponse{TokenID: h.market.TokenOf(identity)})
}

func (h *MarketHandler) handleBalance(w http.ResponseWriter, req *http.Request) {
	identity, err := crypto.NewPublicKeyFromString(chi.URLParam(req, "identity"))
	if err != nil {
		http.Error(w, "invalid identity", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, &BalanceResponse{Balance: h.funds.Balance(identity).String()})
}

// persistToken writes a token's current record through to the store.
func (h *MarketHandler) persistToken(id protocol.TokenID) {
	token := h.market.GetToken(id)
	if token == nil {
		return
	}
	if err := h.store.SaveToken(token); err != nil {
		h.log.Error("persisting token failed", "tokenID", id, "err", err)
	}
}

func (h *MarketHandler) persistListing(id protocol.TokenID) {
	listing := h.market.GetListing(id)
	if listing == nil {
		return
	}
	if err := h.store.SaveListing(listing); err != nil {
		h.log.Error("persisting listing failed", "tokenID", id, "err", err)
	}
}

// persistBid looks the bid up by handle so concurrent appends to the same
// token cannot persist the wrong record.
func (h *MarketHandler) persistBid(id protocol.TokenID, handle protocol.Handle) {
	for _, bid := range h.market.Bids(id) {
		if bid.Handle != handle {
			continue
		}
		if err := h.store.SaveBid(bid); err != nil {
			h.log.Error("persisting bid failed", "tokenID", id, "handle", handle, "err", err)
		}
		return
	}
}

func (h *MarketHandler) fail(w http.ResponseWriter, route string, status int, err error) {
	metrics.ErrorCounter("marketd", route).Inc()
	h.log.Warn("request rejected", "route", route, "status", status, "err", err)
	writeJSON(w, status, &StatusResponse{Error: err.Error()})
}

func recoverSigned[T any](req *http.Request) (*T, crypto.PublicKey, error) {
	signed, err := protocol.DecodeMessage[protocol.Signed[T]](req.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed request: %w", err)
	}
	return signed.Recover()
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return amount, nil
}

func tokenIDParam(req *http.Request) (protocol.TokenID, error) {
	raw := chi.URLParam(req, "token_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token id %q", raw)
	}
	return protocol.TokenID(id), nil
}

// statusFor maps market errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, protocol.ErrUnknownToken):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrAlreadyMinted),
		errors.Is(err, protocol.ErrNotActive),
		errors.Is(err, protocol.ErrListingNotActive):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrNotOwner),
		errors.Is(err, protocol.ErrAuthorizationDenied),
		errors.Is(err, protocol.ErrDecryptionRejected):
		return http.StatusForbidden
	case errors.Is(err, protocol.ErrInvalidPrice),
		errors.Is(err, protocol.ErrInvalidProof),
		errors.Is(err, protocol.ErrInsufficientPayment):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
