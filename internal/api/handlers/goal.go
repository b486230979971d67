package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/kernel"
)

type GoalHandler struct {
	k *kernel.Kernel
}

func NewGoalHandler(k *kernel.Kernel) *GoalHandler {
	return &GoalHandler{k: k}
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.k.ListGoals(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}
	if goals == nil {
		goals = []domain.Goal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals, "count": len(goals)})
}

type goalProgressRequest struct {
	Progress float64 `json:"progress"`
}

func (h *GoalHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req goalProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	goal, err := h.k.UpdateGoalProgress(r.Context(), id, req.Progress)
	if err != nil {
		writeStoreError(w, err, "failed to update goal progress")
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

type goalStatusRequest struct {
	Status string `json:"status"`
}

func (h *GoalHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req goalStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.k.UpdateGoalStatus(r.Context(), id, domain.GoalStatus(req.Status)); err != nil {
		// Invalid transitions are client errors, not server failures.
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type blockerRequest struct {
	Description string  `json:"description"`
	Severity    float64 `json:"severity"`
}

func (h *GoalHandler) AddBlocker(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req blockerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	blocker, err := h.k.AddGoalBlocker(r.Context(), id, req.Description, req.Severity)
	if err != nil {
		writeStoreError(w, err, "failed to add blocker")
		return
	}
	writeJSON(w, http.StatusCreated, blocker)
}

func (h *GoalHandler) ResolveBlocker(w http.ResponseWriter, r *http.Request) {
	goalID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	blockerID, ok := urlID(w, r, "blockerID")
	if !ok {
		return
	}
	if err := h.k.ResolveGoalBlocker(r.Context(), goalID, blockerID); err != nil {
		writeStoreError(w, err, "failed to resolve blocker")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GoalHandler) ListBlockers(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	blockers, err := h.k.ListGoalBlockers(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list blockers")
		return
	}
	if blockers == nil {
		blockers = []domain.Blocker{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"blockers": blockers, "count": len(blockers)})
}

type milestoneRequest struct {
	Description string `json:"description"`
	Reached     bool   `json:"reached"`
}

func (h *GoalHandler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req milestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	milestone, err := h.k.AddGoalMilestone(r.Context(), id, req.Description, req.Reached)
	if err != nil {
		writeStoreError(w, err, "failed to add milestone")
		return
	}
	writeJSON(w, http.StatusCreated, milestone)
}

func (h *GoalHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	milestones, err := h.k.ListGoalMilestones(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list milestones")
		return
	}
	if milestones == nil {
		milestones = []domain.Milestone{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"milestones": milestones, "count": len(milestones)})
}
