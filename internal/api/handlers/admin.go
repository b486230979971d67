package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noemahq/noema/internal/kernel"
)

// AdminHandler covers pipeline administration: extractor toggles, observer
// control and bulk text maintenance.
type AdminHandler struct {
	k *kernel.Kernel
}

func NewAdminHandler(k *kernel.Kernel) *AdminHandler {
	return &AdminHandler{k: k}
}

func (h *AdminHandler) ListExtractors(w http.ResponseWriter, r *http.Request) {
	states, err := h.k.ExtractorStates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list extractors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"extractors": states, "count": len(states)})
}

type extractorToggleRequest struct {
	Active bool `json:"active"`
}

func (h *AdminHandler) SetExtractorActive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req extractorToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.k.SetExtractorActive(r.Context(), name, req.Active); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ObserverStats(w http.ResponseWriter, r *http.Request) {
	stats := h.k.ObserverStats()
	writeJSON(w, http.StatusOK, map[string]any{"observers": stats, "count": len(stats)})
}

// DisableObserver is one-way: a disabled observer stays off until restart.
func (h *AdminHandler) DisableObserver(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.k.DisableObserver(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchReplaceRequest struct {
	OldText            string `json:"old_text"`
	NewText            string `json:"new_text"`
	RegisterCorrection bool   `json:"register_correction"`
}

func (h *AdminHandler) SearchAndReplace(w http.ResponseWriter, r *http.Request) {
	var req searchReplaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	counts, err := h.k.SearchAndReplace(r.Context(), req.OldText, req.NewText, req.RegisterCorrection)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{"replacements": counts, "total": total})
}
