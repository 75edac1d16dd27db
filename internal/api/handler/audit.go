package handler

import (
	"net/http"

	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

type Audit struct {
	svc *core.AuditService
}

func NewAudit(svc *core.AuditService) *Audit {
	return &Audit{svc: svc}
}

func (h *Audit) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)
	filter := core.AuditFilter{
		ActionType: r.URL.Query().Get("action_type"),
		AdminEmail: r.URL.Query().Get("admin_email"),
		Target:     r.URL.Query().Get("target"),
	}

	logs, hasMore, err := h.svc.List(r.Context(), filter, p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, true)
		return
	}

	nextCursor := ""
	if hasMore && len(logs) > 0 {
		nextCursor = logs[len(logs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, logs, nextCursor, hasMore)
}
