package handler

import (
	"net/http"

	mw "github.com/NeonAnubis/afrimail-backend/internal/api/middleware"
	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
	"github.com/NeonAnubis/afrimail-backend/internal/model"
)

// Storage serves the admin storage overview built from the mailbox
// mirror.
type Storage struct {
	svc *core.StorageService
}

func NewStorage(svc *core.StorageService) *Storage {
	return &Storage{svc: svc}
}

func (h *Storage) Overview(w http.ResponseWriter, r *http.Request) {
	usages, err := h.svc.Overview(r.Context())
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, usages)
}

func (h *Storage) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

func (h *Storage) Presets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.svc.QuotaPresets(r.Context())
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, presets)
}

func (h *Storage) SetPresets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Presets []model.QuotaPreset `json:"presets" validate:"required,min=1"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var updatedBy string
	if claims := mw.GetClaims(r.Context()); claims != nil {
		updatedBy = claims.Email
	}

	if err := h.svc.SetQuotaPresets(r.Context(), req.Presets, updatedBy); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
