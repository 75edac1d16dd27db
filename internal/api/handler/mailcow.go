package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
)

// Mailcow passes a small set of control plane operations straight
// through for admins: DKIM key management, server status, logs, and
// per-mailbox rate limits. Everything that touches local state goes
// through the domain, mailbox, and alias services instead.
type Mailcow struct {
	mc *mailcow.Client
}

func NewMailcow(mc *mailcow.Client) *Mailcow {
	return &Mailcow{mc: mc}
}

func (h *Mailcow) requireConfigured(w http.ResponseWriter) bool {
	if !h.mc.IsConfigured() {
		response.WriteError(w, http.StatusServiceUnavailable, "mail server integration is not configured")
		return false
	}
	return true
}

func (h *Mailcow) Health(w http.ResponseWriter, r *http.Request) {
	if !h.mc.IsConfigured() {
		response.WriteJSON(w, http.StatusOK, map[string]any{"configured": false, "reachable": false})
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"configured": true,
		"reachable":  h.mc.HealthCheck(r.Context()),
	})
}

func (h *Mailcow) Status(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}
	raw, err := h.mc.Status(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (h *Mailcow) GetDKIM(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}
	domain, err := request.RequireID(chi.URLParam(r, "domain"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := h.mc.GetDKIM(r.Context(), domain)
	if err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (h *Mailcow) CreateDKIM(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}
	var req struct {
		Domain    string `json:"domain" validate:"required,fqdn"`
		KeyLength int    `json:"key_length"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.KeyLength == 0 {
		req.KeyLength = 2048
	}

	if err := h.mc.CreateDKIM(r.Context(), req.Domain, req.KeyLength); err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusCreated, map[string]string{"domain": req.Domain})
}

func (h *Mailcow) DeleteDKIM(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}
	domain, err := request.RequireID(chi.URLParam(r, "domain"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.mc.DeleteDKIM(r.Context(), domain); err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Mailcow) GetLogs(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}
	logType, err := request.RequireID(chi.URLParam(r, "type"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	count := 50
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			response.WriteError(w, http.StatusBadRequest, "count must be between 1 and 1000")
			return
		}
		count = n
	}

	raw, err := h.mc.GetLogs(r.Context(), logType, count)
	if err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (h *Mailcow) GetRatelimit(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}
	mailbox, err := request.RequireID(chi.URLParam(r, "email"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := h.mc.GetRatelimit(r.Context(), mailbox)
	if err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (h *Mailcow) SetRatelimit(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}
	mailbox, err := request.RequireID(chi.URLParam(r, "email"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Value int    `json:"value" validate:"required,min=1"`
		Frame string `json:"frame" validate:"required,oneof=s m h d"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.mc.SetRatelimit(r.Context(), mailbox, req.Value, req.Frame); err != nil {
		response.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
