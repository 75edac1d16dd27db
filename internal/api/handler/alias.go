package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/NeonAnubis/afrimail-backend/internal/api/middleware"
	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

type Alias struct {
	svc *core.AliasService
}

func NewAlias(svc *core.AliasService) *Alias {
	return &Alias{svc: svc}
}

func (h *Alias) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	aliases, hasMore, err := h.svc.List(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	var nextCursor string
	if hasMore && len(aliases) > 0 {
		nextCursor = aliases[len(aliases)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, aliases, nextCursor, hasMore)
}

func (h *Alias) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address            string   `json:"address" validate:"required,email"`
		Targets            []string `json:"targets" validate:"required,min=1,dive,email"`
		IsDistributionList bool     `json:"is_distribution_list"`
		Description        string   `json:"description"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var createdBy *string
	if claims := mw.GetClaims(r.Context()); claims != nil {
		createdBy = &claims.Email
	}

	alias, err := h.svc.Create(r.Context(), core.CreateAliasParams{
		Address:            req.Address,
		Targets:            req.Targets,
		IsDistributionList: req.IsDistributionList,
		Description:        req.Description,
		CreatedBy:          createdBy,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	response.WriteJSON(w, http.StatusCreated, alias)
}

func (h *Alias) CreateCatchAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain  string   `json:"domain" validate:"required,fqdn"`
		Targets []string `json:"targets" validate:"required,min=1,dive,email"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var createdBy *string
	if claims := mw.GetClaims(r.Context()); claims != nil {
		createdBy = &claims.Email
	}

	alias, err := h.svc.CreateCatchAll(r.Context(), req.Domain, req.Targets, createdBy)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	response.WriteJSON(w, http.StatusCreated, alias)
}

func (h *Alias) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	alias, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, alias)
}

func (h *Alias) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Targets     []string `json:"targets" validate:"omitempty,min=1,dive,email"`
		Description *string  `json:"description"`
		Active      *bool    `json:"active"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	alias, err := h.svc.Update(r.Context(), id, core.UpdateAliasParams{
		Targets:     req.Targets,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, alias)
}

func (h *Alias) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *Alias) CheckSync(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	statuses, hasMore, err := h.svc.CheckSync(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	var nextCursor string
	if hasMore && len(statuses) > 0 {
		nextCursor = statuses[len(statuses)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, statuses, nextCursor, hasMore)
}

func (h *Alias) AdoptExternalID(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	alias, err := h.svc.AdoptExternalID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, alias)
}
