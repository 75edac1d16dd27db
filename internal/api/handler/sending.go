package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mw "github.com/NeonAnubis/afrimail-backend/internal/api/middleware"
	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

type Sending struct {
	svc *core.SendingLimitService
}

func NewSending(svc *core.SendingLimitService) *Sending {
	return &Sending{svc: svc}
}

func (h *Sending) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

func (h *Sending) ListLimits(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	limits, hasMore, err := h.svc.List(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	var nextCursor string
	if hasMore && len(limits) > 0 {
		nextCursor = limits[len(limits)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, limits, nextCursor, hasMore)
}

func (h *Sending) GetLimit(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireID(chi.URLParam(r, "userID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := h.svc.GetByUserID(r.Context(), userID)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, limit)
}

func (h *Sending) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireID(chi.URLParam(r, "userID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		TierName    *string `json:"tier_name"`
		DailyLimit  *int    `json:"daily_limit"`
		HourlyLimit *int    `json:"hourly_limit"`
		Reason      *string `json:"reason"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := h.svc.UpdateLimits(r.Context(), userID, core.UpdateLimitsParams{
		TierName:    req.TierName,
		DailyLimit:  req.DailyLimit,
		HourlyLimit: req.HourlyLimit,
		Reason:      req.Reason,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, limit)
}

func (h *Sending) Suspend(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireID(chi.URLParam(r, "userID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Suspend(r.Context(), userID, req.Reason); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Sending) Resume(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireID(chi.URLParam(r, "userID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Resume(r.Context(), userID); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Sending) ResetCounters(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireID(chi.URLParam(r, "userID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.ResetCounters(r.Context(), userID); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Sending) ListViolations(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	var resolved *bool
	if v := r.URL.Query().Get("resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, "resolved must be true or false")
			return
		}
		resolved = &b
	}

	violations, hasMore, err := h.svc.ListViolations(r.Context(), resolved, p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	var nextCursor string
	if hasMore && len(violations) > 0 {
		nextCursor = violations[len(violations)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, violations, nextCursor, hasMore)
}

func (h *Sending) ResolveViolation(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resolvedBy string
	if claims := mw.GetClaims(r.Context()); claims != nil {
		resolvedBy = claims.Email
	}

	if err := h.svc.ResolveViolation(r.Context(), id, req.Notes, resolvedBy); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Sending) SendHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireID(chi.URLParam(r, "userID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := request.ParsePagination(r)

	logs, hasMore, err := h.svc.SendHistory(r.Context(), userID, p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	var nextCursor string
	if hasMore && len(logs) > 0 {
		nextCursor = logs[len(logs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, logs, nextCursor, hasMore)
}
