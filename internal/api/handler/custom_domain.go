package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
	"github.com/NeonAnubis/afrimail-backend/internal/model"
)

type CustomDomain struct {
	svc *core.CustomDomainService
}

func NewCustomDomain(svc *core.CustomDomainService) *CustomDomain {
	return &CustomDomain{svc: svc}
}

// domainResponse bundles a custom domain with the TXT record the owner
// has to publish, so clients never build the record themselves.
type domainResponse struct {
	model.CustomDomain
	TXTRecord string `json:"txt_record,omitempty"`
}

func (h *CustomDomain) present(d *model.CustomDomain) domainResponse {
	resp := domainResponse{CustomDomain: *d}
	if d.VerificationCode != nil {
		resp.TXTRecord = h.svc.TXTRecord(*d.VerificationCode)
	}
	return resp
}

func (h *CustomDomain) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)
	userID := r.URL.Query().Get("user_id")

	domains, hasMore, err := h.svc.List(r.Context(), userID, p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	items := make([]domainResponse, 0, len(domains))
	for i := range domains {
		items = append(items, h.present(&domains[i]))
	}

	nextCursor := ""
	if hasMore && len(domains) > 0 {
		nextCursor = domains[len(domains)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, items, nextCursor, hasMore)
}

func (h *CustomDomain) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string  `json:"domain" validate:"required,fqdn"`
		UserID *string `json:"user_id"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.svc.Register(r.Context(), req.Domain, req.UserID)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusCreated, h.present(d))
}

func (h *CustomDomain) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, h.present(d))
}

func (h *CustomDomain) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.svc.Verify(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, h.present(d))
}

func (h *CustomDomain) Delete(w http.ResponseWriter, r *http.Request) {
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
