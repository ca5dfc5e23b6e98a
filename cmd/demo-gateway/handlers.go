package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oscaryu0/VaultArt/gateway"
	"github.com/oscaryu0/VaultArt/protocol"
)

// EngineHandler exposes the mock engine over the gateway wire protocol.
type EngineHandler struct {
	engine *gateway.MockGateway
	log    *slog.Logger
}

// NewEngineHandler creates the handler.
func NewEngineHandler(engine *gateway.MockGateway, log *slog.Logger) *EngineHandler {
	return &EngineHandler{engine: engine, log: log}
}

// RegisterRoutes registers the engine routes.
func (h *EngineHandler) RegisterRoutes(r chi.Router) {
	r.Route("/gateway", func(r chi.Router) {
		r.Post("/encrypt", h.handleEncrypt)
		r.Post("/verify-proof", h.handleVerifyProof)
		r.Post("/decrypt", h.handleDecrypt)
	})
}

func (h *EngineHandler) handleEncrypt(w http.ResponseWriter, req *http.Request) {
	var encReq gateway.EncryptRequest
	if err := json.NewDecoder(req.Body).Decode(&encReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	value, ok := new(big.Int).SetString(encReq.Value, 10)
	if !ok || value.Sign() < 0 {
		http.Error(w, "value must be a non-negative decimal integer", http.StatusBadRequest)
		return
	}

	handle, proof := h.engine.Encrypt(value, encReq.Sender)
	h.log.Info("value encrypted", "handle", handle, "sender", encReq.Sender)

	writeJSON(w, http.StatusOK, &gateway.EncryptResponse{
		Handle: handle,
		Proof:  hex.EncodeToString(proof),
	})
}

func (h *EngineHandler) handleVerifyProof(w http.ResponseWriter, req *http.Request) {
	var verifyReq gateway.VerifyProofRequest
	if err := json.NewDecoder(req.Body).Decode(&verifyReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	proof, err := hex.DecodeString(verifyReq.Proof)
	if err != nil {
		http.Error(w, "malformed proof", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, &gateway.VerifyProofResponse{
		Valid: h.engine.VerifyProof(verifyReq.Handle, proof),
	})
}

func (h *EngineHandler) handleDecrypt(w http.ResponseWriter, req *http.Request) {
	var decReq gateway.DecryptRequest
	if err := json.NewDecoder(req.Body).Decode(&decReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if decReq.Authorization == nil {
		http.Error(w, "missing authorization", http.StatusBadRequest)
		return
	}

	values, err := h.engine.DecryptAuthorized(decReq.Authorization, decReq.Signature, decReq.Handles)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, protocol.ErrDecryptionRejected) {
			status = http.StatusForbidden
		}
		h.log.Warn("decryption rejected", "requester", decReq.Authorization.Requester, "err", err)
		http.Error(w, err.Error(), status)
		return
	}

	resp := &gateway.DecryptResponse{Sealed: make(map[protocol.Handle]string, len(values))}
	for handle, value := range values {
		sealed, err := gateway.SealValue(decReq.Authorization.EphemeralPublicKey, handle, value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Sealed[handle] = sealed
	}

	h.log.Info("decryption served", "requester", decReq.Authorization.Requester, "handles", len(values))
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
