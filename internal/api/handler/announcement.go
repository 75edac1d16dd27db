package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/NeonAnubis/afrimail-backend/internal/api/middleware"
	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

type Announcement struct {
	svc *core.AnnouncementService
}

func NewAnnouncement(svc *core.AnnouncementService) *Announcement {
	return &Announcement{svc: svc}
}

func (h *Announcement) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), false)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, items)
}

func (h *Announcement) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title" validate:"required"`
		Body  string `json:"body" validate:"required"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var createdBy *string
	if claims := mw.GetClaims(r.Context()); claims != nil {
		createdBy = &claims.Email
	}

	a, err := h.svc.Create(r.Context(), req.Title, req.Body, createdBy)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusCreated, a)
}

func (h *Announcement) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Body        *string `json:"body"`
		IsPublished *bool   `json:"is_published"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.svc.Update(r.Context(), id, core.UpdateAnnouncementParams{
		Title:       req.Title,
		Body:        req.Body,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, a)
}

func (h *Announcement) Delete(w http.ResponseWriter, r *http.Request) {
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
