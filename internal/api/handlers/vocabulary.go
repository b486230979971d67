package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/kernel"
)

type VocabularyHandler struct {
	k *kernel.Kernel
}

func NewVocabularyHandler(k *kernel.Kernel) *VocabularyHandler {
	return &VocabularyHandler{k: k}
}

type correctionRequest struct {
	WrongText   string `json:"wrong_text"`
	CorrectText string `json:"correct_text"`
}

func (h *VocabularyHandler) AddCorrection(w http.ResponseWriter, r *http.Request) {
	var req correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	correction, err := h.k.AddCorrection(r.Context(), req.WrongText, req.CorrectText)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, correction)
}

func (h *VocabularyHandler) RemoveCorrection(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.k.RemoveCorrection(r.Context(), id); err != nil {
		writeStoreError(w, err, "failed to remove correction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VocabularyHandler) ListCorrections(w http.ResponseWriter, r *http.Request) {
	corrections, err := h.k.ListCorrections(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list corrections")
		return
	}
	if corrections == nil {
		corrections = []domain.Correction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"corrections": corrections, "count": len(corrections)})
}

type vocabularyEntryRequest struct {
	Spelling     string   `json:"spelling"`
	EntityType   string   `json:"entity_type,omitempty"`
	ContextHints []string `json:"context_hints,omitempty"`
}

func (h *VocabularyHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req vocabularyEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, err := h.k.AddVocabularyEntry(r.Context(), req.Spelling, req.EntityType, req.ContextHints)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *VocabularyHandler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.k.RemoveVocabularyEntry(r.Context(), id); err != nil {
		writeStoreError(w, err, "failed to remove vocabulary entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VocabularyHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.k.ListVocabulary(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list vocabulary")
		return
	}
	if entries == nil {
		entries = []domain.VocabularyEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// Suggest returns the closest phonetic match for an observed spelling, or an
// empty body when nothing in the vocabulary sounds alike.
func (h *VocabularyHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	observed := r.URL.Query().Get("text")
	if observed == "" {
		writeError(w, http.StatusBadRequest, "text parameter is required")
		return
	}
	suggestion, err := h.k.SuggestCanonicalization(r.Context(), observed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to suggest canonicalization")
		return
	}
	if suggestion == nil {
		writeJSON(w, http.StatusOK, map[string]any{"suggestion": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestion": suggestion})
}

func (h *VocabularyHandler) ApplySuggestion(w http.ResponseWriter, r *http.Request) {
	var suggestion domain.CanonicalizationSuggestion
	if err := json.NewDecoder(r.Body).Decode(&suggestion); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if suggestion.ObservedText == "" || suggestion.CorrectSpelling == "" {
		writeError(w, http.StatusBadRequest, "observed_text and correct_spelling are required")
		return
	}
	if err := h.k.ApplyCanonicalization(r.Context(), &suggestion); err != nil {
		writeStoreError(w, err, "failed to apply canonicalization")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VocabularyHandler) Sync(w http.ResponseWriter, r *http.Request) {
	added, err := h.k.SyncVocabulary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sync vocabulary")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}
