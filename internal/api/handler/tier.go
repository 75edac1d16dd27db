package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

type Tier struct {
	svc *core.SendingTierService
}

func NewTier(svc *core.SendingTierService) *Tier {
	return &Tier{svc: svc}
}

func (h *Tier) List(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.svc.List(r.Context())
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, tiers)
}

func (h *Tier) Get(w http.ResponseWriter, r *http.Request) {
	name, err := request.RequireID(chi.URLParam(r, "name"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tier, err := h.svc.GetByName(r.Context(), name)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, tier)
}

func (h *Tier) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string  `json:"name" validate:"required,tiername"`
		DisplayName  string  `json:"display_name" validate:"required"`
		DailyLimit   int     `json:"daily_limit"`
		HourlyLimit  int     `json:"hourly_limit"`
		PriceMonthly float64 `json:"price_monthly"`
		SortOrder    int     `json:"sort_order"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tier, err := h.svc.Create(r.Context(), core.CreateTierParams{
		Name:         req.Name,
		DisplayName:  req.DisplayName,
		DailyLimit:   req.DailyLimit,
		HourlyLimit:  req.HourlyLimit,
		PriceMonthly: req.PriceMonthly,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusCreated, tier)
}

func (h *Tier) Update(w http.ResponseWriter, r *http.Request) {
	name, err := request.RequireID(chi.URLParam(r, "name"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		DisplayName  *string  `json:"display_name"`
		DailyLimit   *int     `json:"daily_limit"`
		HourlyLimit  *int     `json:"hourly_limit"`
		PriceMonthly *float64 `json:"price_monthly"`
		IsActive     *bool    `json:"is_active"`
		SortOrder    *int     `json:"sort_order"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tier, err := h.svc.Update(r.Context(), name, core.UpdateTierParams{
		DisplayName:  req.DisplayName,
		DailyLimit:   req.DailyLimit,
		HourlyLimit:  req.HourlyLimit,
		PriceMonthly: req.PriceMonthly,
		IsActive:     req.IsActive,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, tier)
}

func (h *Tier) Delete(w http.ResponseWriter, r *http.Request) {
	name, err := request.RequireID(chi.URLParam(r, "name"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), name); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
