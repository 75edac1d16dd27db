package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

// AuditLogger is an async audit trail writer. Mutating requests are
// recorded off the request path so a slow audit insert never delays a
// response.
type AuditLogger struct {
	pool   *pgxpool.Pool
	audit  *core.AuditService
	logger zerolog.Logger
	ch     chan auditEntry
	done   chan struct{}
}

type auditEntry struct {
	ActionType string
	ActorEmail string

	// Target of the action, as far as the route reveals it. Email
	// routes carry the address directly; userID routes carry the ID,
	// resolved to an address by the writer.
	TargetEmail  *string
	TargetUserID string

	Details   json.RawMessage
	IPAddress *string
}

func NewAuditLogger(pool *pgxpool.Pool, logger zerolog.Logger) *AuditLogger {
	al := &AuditLogger{
		pool:   pool,
		audit:  core.NewAuditService(pool),
		logger: logger,
		ch:     make(chan auditEntry, 1024),
		done:   make(chan struct{}),
	}
	go al.drain()
	return al
}

func (al *AuditLogger) drain() {
	defer close(al.done)
	for entry := range al.ch {
		// context.Background since this runs after the request.
		ctx := context.Background()

		target := entry.TargetEmail
		if target == nil && entry.TargetUserID != "" {
			var email string
			err := al.pool.QueryRow(ctx,
				"SELECT email FROM users WHERE id = $1", entry.TargetUserID,
			).Scan(&email)
			if err == nil {
				target = &email
			}
			// An unknown ID (user already deleted) leaves target NULL;
			// the ID is still in the details.
		}

		if err := al.audit.Record(ctx, entry.ActionType, entry.ActorEmail, target, entry.Details, entry.IPAddress); err != nil {
			al.logger.Error().Err(err).Msg("failed to write audit log")
		}
	}
}

// Close stops accepting entries and waits for the writer to drain.
func (al *AuditLogger) Close() {
	close(al.ch)
	<-al.done
}

// Middleware returns a chi middleware that records mutating requests.
func (al *AuditLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		// Read and re-buffer the request body.
		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		var actorEmail string
		if claims := GetClaims(r.Context()); claims != nil {
			actorEmail = claims.Email
		}

		details := map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": sw.status,
		}
		if len(bodyBytes) > 0 && json.Valid(bodyBytes) {
			details["body"] = sanitizeBody(bodyBytes)
		}
		raw, _ := json.Marshal(details)

		var ip *string
		if addr := r.RemoteAddr; addr != "" {
			ip = &addr
		}

		targetEmail, targetUserID := auditTarget(r)

		select {
		case al.ch <- auditEntry{
			ActionType:   actionType(r.Method, r.URL.Path),
			ActorEmail:   actorEmail,
			TargetEmail:  targetEmail,
			TargetUserID: targetUserID,
			Details:      raw,
			IPAddress:    ip,
		}:
		default:
			al.logger.Warn().Msg("audit log buffer full, dropping entry")
		}
	})
}

// auditTarget reads the acted-on user out of the matched route. User
// and mailbox routes address targets by {email}; sending-limit routes
// address them by {userID}. Params are read after the handler ran, so
// the full nested pattern has been matched.
func auditTarget(r *http.Request) (email *string, userID string) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil, ""
	}
	if e := rctx.URLParam("email"); e != "" {
		return &e, ""
	}
	return nil, rctx.URLParam("userID")
}

// actionType derives a dotted action name from the request, e.g.
// POST /api/v1/domains -> domains.create,
// DELETE /api/v1/users/abc -> users.delete.
func actionType(method, path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	resource := "unknown"
	for i, part := range parts {
		if part == "" {
			continue
		}
		// Resource names sit at even indices, IDs at odd ones.
		if i%2 == 0 {
			resource = part
		}
	}

	verb := "update"
	switch method {
	case http.MethodPost:
		verb = "create"
	case http.MethodDelete:
		verb = "delete"
	}
	return resource + "." + verb
}

// sensitiveFields are redacted from audit details.
var sensitiveFields = map[string]bool{
	"password": true, "current_password": true, "new_password": true,
	"api_key": true, "secret": true, "token": true,
}

func sanitizeBody(body []byte) map[string]any {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	for k := range data {
		if sensitiveFields[k] {
			data[k] = "[REDACTED]"
		}
	}
	return data
}
