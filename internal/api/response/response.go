package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// PaginatedResponse wraps a list with pagination metadata.
type PaginatedResponse struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// WritePaginated writes a paginated JSON response.
func WritePaginated(w http.ResponseWriter, status int, items any, nextCursor string, hasMore bool) {
	WriteJSON(w, status, PaginatedResponse{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	})
}

// WriteServiceError maps a core error to its HTTP status. Admin routes
// see the upstream control plane message verbatim; user routes get a
// generic message so internal detail never leaks.
func WriteServiceError(w http.ResponseWriter, err error, adminView bool) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		WriteError(w, http.StatusBadRequest, verr.Msg)
		return
	}
	if errors.Is(err, core.ErrInvalidCredentials) {
		WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if core.IsNotFound(err) {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if core.IsConflict(err) {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}
	var uerr *core.UpstreamError
	if errors.As(err, &uerr) {
		if adminView {
			WriteError(w, http.StatusBadGateway, uerr.Error())
		} else {
			WriteError(w, http.StatusBadGateway, "failed to reach mail server")
		}
		return
	}
	WriteError(w, http.StatusInternalServerError, err.Error())
}
