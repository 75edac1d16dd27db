package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

type Mailbox struct {
	svc *core.MailboxService
}

func NewMailbox(svc *core.MailboxService) *Mailbox {
	return &Mailbox{svc: svc}
}

func (h *Mailbox) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	boxes, hasMore, err := h.svc.List(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	var nextCursor string
	if hasMore && len(boxes) > 0 {
		nextCursor = boxes[len(boxes)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, boxes, nextCursor, hasMore)
}

func (h *Mailbox) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocalPart  string  `json:"local_part" validate:"required"`
		Domain     string  `json:"domain" validate:"required,fqdn"`
		Password   string  `json:"password" validate:"required"`
		Name       string  `json:"name"`
		QuotaBytes int64   `json:"quota_bytes"`
		UserID     *string `json:"user_id"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	box, err := h.svc.Create(r.Context(), core.CreateMailboxParams{
		LocalPart:  req.LocalPart,
		Domain:     req.Domain,
		Password:   req.Password,
		Name:       req.Name,
		QuotaBytes: req.QuotaBytes,
		UserID:     req.UserID,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	response.WriteJSON(w, http.StatusCreated, box)
}

func (h *Mailbox) Get(w http.ResponseWriter, r *http.Request) {
	email, err := request.RequireID(chi.URLParam(r, "email"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	box, err := h.svc.GetByEmail(r.Context(), email)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, box)
}

func (h *Mailbox) UpdateQuota(w http.ResponseWriter, r *http.Request) {
	email, err := request.RequireID(chi.URLParam(r, "email"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		QuotaBytes int64 `json:"quota_bytes"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	box, err := h.svc.UpdateQuota(r.Context(), email, req.QuotaBytes)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, box)
}

func (h *Mailbox) SetPassword(w http.ResponseWriter, r *http.Request) {
	email, err := request.RequireID(chi.URLParam(r, "email"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Password string `json:"password" validate:"required"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetPassword(r.Context(), email, req.Password); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Mailbox) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Mailbox) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Mailbox) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	email, err := request.RequireID(chi.URLParam(r, "email"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	box, err := h.svc.SetActive(r.Context(), email, active)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, box)
}

func (h *Mailbox) Delete(w http.ResponseWriter, r *http.Request) {
	email, err := request.RequireID(chi.URLParam(r, "email"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), email); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Mailbox) Sync(w http.ResponseWriter, r *http.Request) {
	email, err := request.RequireID(chi.URLParam(r, "email"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Sync(r.Context(), email)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

func (h *Mailbox) SyncDomain(w http.ResponseWriter, r *http.Request) {
	domain, err := request.RequireID(chi.URLParam(r, "domain"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.SyncDomain(r.Context(), domain)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}
