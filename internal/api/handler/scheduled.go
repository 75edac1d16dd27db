package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/NeonAnubis/afrimail-backend/internal/api/middleware"
	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

type Scheduled struct {
	svc *core.ScheduledActionService
}

func NewScheduled(svc *core.ScheduledActionService) *Scheduled {
	return &Scheduled{svc: svc}
}

func (h *Scheduled) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)
	status := r.URL.Query().Get("status")

	actions, hasMore, err := h.svc.List(r.Context(), status, p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	var nextCursor string
	if hasMore && len(actions) > 0 {
		nextCursor = actions[len(actions)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, actions, nextCursor, hasMore)
}

func (h *Scheduled) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActionType   string          `json:"action_type" validate:"required"`
		TargetType   string          `json:"target_type"`
		TargetIDs    []string        `json:"target_ids" validate:"required,min=1"`
		ScheduledFor time.Time       `json:"scheduled_for" validate:"required"`
		ActionData   json.RawMessage `json:"action_data"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var createdBy *string
	if claims := mw.GetClaims(r.Context()); claims != nil {
		createdBy = &claims.Email
	}

	action, err := h.svc.Create(r.Context(), core.CreateActionParams{
		ActionType:   req.ActionType,
		TargetType:   req.TargetType,
		TargetIDs:    req.TargetIDs,
		ScheduledFor: req.ScheduledFor,
		ActionData:   req.ActionData,
		CreatedBy:    createdBy,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusCreated, action)
}

func (h *Scheduled) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	action, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, action)
}

func (h *Scheduled) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Scheduled) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
