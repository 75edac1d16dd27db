package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

// Support exposes the admin side of the ticket queue. End users open
// and read their own tickets through the Me handler.
type Support struct {
	svc *core.SupportTicketService
}

func NewSupport(svc *core.SupportTicketService) *Support {
	return &Support{svc: svc}
}

func (h *Support) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)
	status := r.URL.Query().Get("status")

	tickets, hasMore, err := h.svc.List(r.Context(), status, p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	nextCursor := ""
	if hasMore && len(tickets) > 0 {
		nextCursor = tickets[len(tickets)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, tickets, nextCursor, hasMore)
}

func (h *Support) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, t)
}

func (h *Support) Reply(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Reply  string `json:"reply" validate:"required"`
		Status string `json:"status" validate:"required"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.svc.Reply(r.Context(), id, req.Reply, req.Status)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, t)
}
