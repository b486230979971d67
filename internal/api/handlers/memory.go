package handlers

import (
	"net/http"

	"github.com/noemahq/noema/internal/kernel"
)

type MemoryHandler struct {
	k *kernel.Kernel
}

func NewMemoryHandler(k *kernel.Kernel) *MemoryHandler {
	return &MemoryHandler{k: k}
}

func (h *MemoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.k.MemoryStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get memory stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *MemoryHandler) TopOfMind(w http.ResponseWriter, r *http.Request) {
	top, err := h.k.TopOfMind(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute top of mind")
		return
	}
	writeJSON(w, http.StatusOK, top)
}
