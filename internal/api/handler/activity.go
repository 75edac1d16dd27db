package handler

import (
	"net/http"
	"strconv"

	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

// Activity serves the login-activity trail and the inactivity report.
type Activity struct {
	svc *core.LoginActivityService
}

func NewActivity(svc *core.LoginActivityService) *Activity {
	return &Activity{svc: svc}
}

func (h *Activity) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	activities, hasMore, err := h.svc.List(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	var nextCursor string
	if hasMore && len(activities) > 0 {
		nextCursor = activities[len(activities)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, activities, nextCursor, hasMore)
}

func (h *Activity) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

func (h *Activity) Inactive(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, "days must be a number")
			return
		}
		days = parsed
	}

	users, err := h.svc.Inactive(r.Context(), days)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}
	response.WriteJSON(w, http.StatusOK, users)
}
