package handlers

import (
	"net/http"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/kernel"
)

type KnowledgeHandler struct {
	k *kernel.Kernel
}

func NewKnowledgeHandler(k *kernel.Kernel) *KnowledgeHandler {
	return &KnowledgeHandler{k: k}
}

func validClaimState(s string) bool {
	switch domain.ClaimState(s) {
	case domain.ClaimActive, domain.ClaimStale, domain.ClaimRetracted:
		return true
	}
	return false
}

func (h *KnowledgeHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state != "" && !validClaimState(state) {
		writeError(w, http.StatusBadRequest, "invalid state parameter")
		return
	}

	if subject := r.URL.Query().Get("subject"); subject != "" {
		// Subject queries default to active claims.
		if state == "" {
			state = string(domain.ClaimActive)
		}
		claims, err := h.k.ListClaimsBySubject(r.Context(), subject, domain.ClaimState(state))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list claims")
			return
		}
		writeClaims(w, claims)
		return
	}

	claims, err := h.k.ListClaims(r.Context(), domain.ClaimState(state), pageFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}
	writeClaims(w, claims)
}

func writeClaims(w http.ResponseWriter, claims []domain.Claim) {
	if claims == nil {
		claims = []domain.Claim{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": claims, "count": len(claims)})
}

func (h *KnowledgeHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	claim, err := h.k.GetClaim(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "failed to get claim")
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (h *KnowledgeHandler) ReinforceClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	claim, err := h.k.ReinforceClaim(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "failed to reinforce claim")
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (h *KnowledgeHandler) PromoteClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	promoted, err := h.k.PromoteClaim(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "failed to promote claim")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"promoted": promoted})
}

func (h *KnowledgeHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := h.k.ListEntities(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entities")
		return
	}
	if entities == nil {
		entities = []domain.Entity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities, "count": len(entities)})
}

func (h *KnowledgeHandler) ListPropositions(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	props, err := h.k.ListPropositions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list propositions")
		return
	}
	if props == nil {
		props = []domain.Proposition{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"propositions": props, "count": len(props)})
}

func (h *KnowledgeHandler) ListRelations(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	relations, err := h.k.ListRelations(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list relations")
		return
	}
	if relations == nil {
		relations = []domain.Relation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"relations": relations, "count": len(relations)})
}
