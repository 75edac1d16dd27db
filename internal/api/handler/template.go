package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/NeonAnubis/afrimail-backend/internal/api/middleware"
	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

type Template struct {
	svc *core.UserTemplateService
}

func NewTemplate(svc *core.UserTemplateService) *Template {
	return &Template{svc: svc}
}

func (h *Template) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.List(r.Context())
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, templates)
}

func (h *Template) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tpl, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, tpl)
}

func (h *Template) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string          `json:"name" validate:"required"`
		Description *string         `json:"description"`
		QuotaBytes  int64           `json:"quota_bytes"`
		Permissions json.RawMessage `json:"permissions"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var createdBy *string
	if claims := mw.GetClaims(r.Context()); claims != nil {
		createdBy = &claims.Subject
	}

	tpl, err := h.svc.Create(r.Context(), core.CreateTemplateParams{
		Name:        req.Name,
		Description: req.Description,
		QuotaBytes:  req.QuotaBytes,
		Permissions: req.Permissions,
		CreatedBy:   createdBy,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusCreated, tpl)
}

func (h *Template) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Name        *string         `json:"name"`
		Description *string         `json:"description"`
		QuotaBytes  *int64          `json:"quota_bytes"`
		Permissions json.RawMessage `json:"permissions"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tpl, err := h.svc.Update(r.Context(), id, core.UpdateTemplateParams{
		Name:        req.Name,
		Description: req.Description,
		QuotaBytes:  req.QuotaBytes,
		Permissions: req.Permissions,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, tpl)
}

func (h *Template) Delete(w http.ResponseWriter, r *http.Request) {
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
