package handler

import (
	"net/http"

	"github.com/freeeve/iron-alliance/api/internal/auth"
	"github.com/freeeve/iron-alliance/api/internal/service"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// PlayHandler handles the endpoints of games in progress.
type PlayHandler struct {
	play *service.PlayService
}

// NewPlayHandler creates a PlayHandler.
func NewPlayHandler(play *service.PlayService) *PlayHandler {
	return &PlayHandler{play: play}
}

// State handles GET /api/v1/games/{id}/state
func (h *PlayHandler) State(w http.ResponseWriter, r *http.Request) {
	gs, err := h.play.State(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// Legal handles GET /api/v1/games/{id}/legal
func (h *PlayHandler) Legal(w http.ResponseWriter, r *http.Request) {
	legal, err := h.play.Legal(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if legal == nil {
		legal = []campaign.LegalAction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": legal})
}

// submitRequest is an action as JSON, or its text notation.
type submitRequest struct {
	campaign.Action
	Notation string `json:"notation,omitempty"`
}

// Submit handles POST /api/v1/games/{id}/actions
func (h *PlayHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a := req.Action
	if req.Notation != "" {
		parsed, err := campaign.ParseAction(req.Notation)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a = parsed
	}

	res, err := h.play.Submit(r.Context(), r.PathValue("id"), userID, a)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Undo handles POST /api/v1/games/{id}/undo
func (h *PlayHandler) Undo(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	res, err := h.play.Undo(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResetPhase handles POST /api/v1/games/{id}/reset-phase
func (h *PlayHandler) ResetPhase(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	res, err := h.play.ResetPhase(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Save handles POST /api/v1/games/{id}/saves
func (h *PlayHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	save, err := h.play.Save(r.Context(), r.PathValue("id"), userID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	save.Payload = nil
	writeJSON(w, http.StatusCreated, save)
}

// ListSaves handles GET /api/v1/games/{id}/saves
func (h *PlayHandler) ListSaves(w http.ResponseWriter, r *http.Request) {
	saves, err := h.play.ListSaves(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if saves == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, saves)
}

// Verify handles GET /api/v1/games/{id}/verify
func (h *PlayHandler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.play.VerifyReplay(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
