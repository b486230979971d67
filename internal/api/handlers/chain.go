package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/kernel"
	"github.com/noemahq/noema/internal/store"
)

type ChainHandler struct {
	k *kernel.Kernel
}

func NewChainHandler(k *kernel.Kernel) *ChainHandler {
	return &ChainHandler{k: k}
}

func (h *ChainHandler) List(w http.ResponseWriter, r *http.Request) {
	chains, err := h.k.ListChains(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chains")
		return
	}
	if chains == nil {
		chains = []domain.ThoughtChain{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chains": chains, "count": len(chains)})
}

func (h *ChainHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	claims, err := h.k.ListChainClaims(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "failed to list chain claims")
		return
	}
	if claims == nil {
		claims = []domain.ChainClaim{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": claims, "count": len(claims)})
}

type branchRequest struct {
	Topic string `json:"topic"`
}

func (h *ChainHandler) Branch(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req branchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	chain, err := h.k.BranchChain(r.Context(), id, req.Topic)
	if err != nil {
		writeStoreError(w, err, "failed to branch chain")
		return
	}
	writeJSON(w, http.StatusCreated, chain)
}

func (h *ChainHandler) Conclude(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.k.ConcludeChain(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		// Already-concluded chains are a state conflict, not a server failure.
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
