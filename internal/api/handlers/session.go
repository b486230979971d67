package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/kernel"
)

type SessionHandler struct {
	k *kernel.Kernel
}

func NewSessionHandler(k *kernel.Kernel) *SessionHandler {
	return &SessionHandler{k: k}
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, err := h.k.StartSession(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	session, err := h.k.EndSession(r.Context())
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	session, err := h.k.GetSession(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	units, err := h.k.ListUnits(r.Context(), id, pageFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list units")
		return
	}
	if units == nil {
		units = []domain.ConversationUnit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": units, "count": len(units)})
}

type submitRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

type submitResponse struct {
	UnitID string `json:"unit_id"`
	Status string `json:"status"`
}

// Submit accepts raw text and queues it for asynchronous processing. The
// response carries only the unit id; knowledge appears as the pipeline runs.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	source := domain.Source(req.Source)
	if req.Source == "" {
		source = domain.SourceText
	}

	unitID, err := h.k.Submit(r.Context(), req.Text, source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{UnitID: unitID.String(), Status: "queued"})
}

func (h *SessionHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.k.QueueStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get queue status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
