package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
	"github.com/NeonAnubis/afrimail-backend/internal/model"
)

type Auth struct {
	svc      *core.AuthService
	activity *core.LoginActivityService
}

func NewAuth(svc *core.AuthService, activity *core.LoginActivityService) *Auth {
	return &Auth{svc: svc, activity: activity}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Auth) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, admin, err := h.svc.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"admin": admin,
	})
}

func (h *Auth) UserLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := h.svc.UserLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordLogin(r, req.Email, false, loginFailureReason(err))
		response.WriteServiceError(w, err, false)
		return
	}

	h.recordLogin(r, user.Email, true, nil)
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// loginFailureReason maps an authentication error to the reason stored
// in the activity trail. Credential failures stay generic there too.
func loginFailureReason(err error) *string {
	reason := "invalid credentials"
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		reason = verr.Error()
	}
	return &reason
}

// recordLogin appends one login_activity row. The trail is advisory;
// a write failure is logged and the response is unaffected.
func (h *Auth) recordLogin(r *http.Request, email string, success bool, failureReason *string) {
	var ip, ua *string
	if addr := r.RemoteAddr; addr != "" {
		ip = &addr
	}
	if agent := r.UserAgent(); agent != "" {
		ua = &agent
	}
	err := h.activity.Record(r.Context(), core.RecordLoginParams{
		Email:         strings.ToLower(email),
		IPAddress:     ip,
		UserAgent:     ua,
		Success:       success,
		FailureReason: failureReason,
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to record login activity")
	}
}

func (h *Auth) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.svc.ListAdmins(r.Context())
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, admins)
}

func (h *Auth) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"required"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	admin, err := h.svc.CreateAdmin(r.Context(), core.CreateAdminParams{
		Email:    req.Email,
		Password: req.Password,
		Role:     model.AdminRole(req.Role),
	})
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	response.WriteJSON(w, http.StatusCreated, admin)
}

func (h *Auth) SetAdminActive(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetAdminActive(r.Context(), id, req.Active); err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
