package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/kernel"
)

// InsightHandler serves derived knowledge: recurring patterns and detected
// contradictions.
type InsightHandler struct {
	k *kernel.Kernel
}

func NewInsightHandler(k *kernel.Kernel) *InsightHandler {
	return &InsightHandler{k: k}
}

func (h *InsightHandler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.k.ListPatterns(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list patterns")
		return
	}
	if patterns == nil {
		patterns = []domain.Pattern{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patterns": patterns, "count": len(patterns)})
}

func (h *InsightHandler) ListContradictions(w http.ResponseWriter, r *http.Request) {
	onlyUnresolved := r.URL.Query().Get("unresolved") == "true"
	contradictions, err := h.k.ListContradictions(r.Context(), onlyUnresolved, pageFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list contradictions")
		return
	}
	if contradictions == nil {
		contradictions = []domain.Contradiction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contradictions": contradictions, "count": len(contradictions)})
}

type resolveContradictionRequest struct {
	ResolutionType string `json:"resolution_type"`
	Notes          string `json:"notes,omitempty"`
}

func (h *InsightHandler) ResolveContradiction(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req resolveContradictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResolutionType == "" {
		writeError(w, http.StatusBadRequest, "resolution_type is required")
		return
	}
	if err := h.k.ResolveContradiction(r.Context(), id, req.ResolutionType, req.Notes); err != nil {
		writeStoreError(w, err, "failed to resolve contradiction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
