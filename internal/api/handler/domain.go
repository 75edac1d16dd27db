package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

type Domain struct {
	svc *core.DomainService
}

func NewDomain(svc *core.DomainService) *Domain {
	return &Domain{svc: svc}
}

func (h *Domain) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	domains, hasMore, err := h.svc.ListWithStats(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	var nextCursor string
	if hasMore && len(domains) > 0 {
		nextCursor = domains[len(domains)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, domains, nextCursor, hasMore)
}

func (h *Domain) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain             string `json:"domain" validate:"required,fqdn"`
		Description        string `json:"description"`
		IsPrimary          bool   `json:"is_primary"`
		MaxAliases         int    `json:"max_aliases"`
		MaxMailboxes       int    `json:"max_mailboxes"`
		MaxQuotaPerMailbox int64  `json:"max_quota_per_mailbox"`
		TotalQuota         int64  `json:"total_quota"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	domain, err := h.svc.Create(r.Context(), core.CreateDomainParams{
		Domain:             req.Domain,
		Description:        req.Description,
		IsPrimary:          req.IsPrimary,
		MaxAliases:         req.MaxAliases,
		MaxMailboxes:       req.MaxMailboxes,
		MaxQuotaPerMailbox: req.MaxQuotaPerMailbox,
		TotalQuota:         req.TotalQuota,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	response.WriteJSON(w, http.StatusCreated, domain)
}

func (h *Domain) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	domain, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, domain)
}

func (h *Domain) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Description        *string `json:"description"`
		IsActive           *bool   `json:"is_active"`
		IsPrimary          *bool   `json:"is_primary"`
		MaxAliases         *int    `json:"max_aliases"`
		MaxMailboxes       *int    `json:"max_mailboxes"`
		MaxQuotaPerMailbox *int64  `json:"max_quota_per_mailbox"`
		TotalQuota         *int64  `json:"total_quota"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	domain, err := h.svc.Update(r.Context(), id, core.UpdateDomainParams{
		Description:        req.Description,
		IsActive:           req.IsActive,
		IsPrimary:          req.IsPrimary,
		MaxAliases:         req.MaxAliases,
		MaxMailboxes:       req.MaxMailboxes,
		MaxQuotaPerMailbox: req.MaxQuotaPerMailbox,
		TotalQuota:         req.TotalQuota,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, domain)
}

func (h *Domain) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *Domain) Sync(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Sync(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}
