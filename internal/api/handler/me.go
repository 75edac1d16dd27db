package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	mw "github.com/NeonAnubis/afrimail-backend/internal/api/middleware"
	"github.com/NeonAnubis/afrimail-backend/internal/api/request"
	"github.com/NeonAnubis/afrimail-backend/internal/api/response"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
	"github.com/NeonAnubis/afrimail-backend/internal/mailer"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// Me is the end-user surface. Every route resolves the account from
// the token; no route accepts a user ID from the client.
type Me struct {
	users   *core.UserService
	boxes   *core.MailboxService
	sending *core.SendingLimitService
	tickets *core.SupportTicketService
	news    *core.AnnouncementService
	domains *core.CustomDomainService
	mail    *mailer.Mailer
}

func NewMe(
	users *core.UserService,
	boxes *core.MailboxService,
	sending *core.SendingLimitService,
	tickets *core.SupportTicketService,
	news *core.AnnouncementService,
	domains *core.CustomDomainService,
	mail *mailer.Mailer,
) *Me {
	return &Me{
		users:   users,
		boxes:   boxes,
		sending: sending,
		tickets: tickets,
		news:    news,
		domains: domains,
		mail:    mail,
	}
}

func (h *Me) Profile(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())
	u, err := h.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	response.WriteJSON(w, http.StatusOK, u)
}

func (h *Me) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())

	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), claims.Subject, req.FirstName, req.LastName)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	response.WriteJSON(w, http.StatusOK, u)
}

func (h *Me) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())

	var req struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=12"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.users.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Me) UpdateRecovery(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())

	var req struct {
		RecoveryEmail *string `json:"recovery_email" validate:"omitempty,email"`
		RecoveryPhone *string `json:"recovery_phone"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.users.UpdateRecovery(r.Context(), claims.Subject, core.UpdateRecoveryParams{
		RecoveryEmail: req.RecoveryEmail,
		RecoveryPhone: req.RecoveryPhone,
	})
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}

	// Confirmation code goes to the new address; delivery is fire and
	// forget, the update itself has already landed.
	if req.RecoveryEmail != nil && *req.RecoveryEmail != "" && h.mail.Enabled() {
		h.mail.SendOTP(*req.RecoveryEmail, platform.NewOTP(6))
	}
	response.WriteJSON(w, http.StatusOK, u)
}

// Mailbox returns the caller's mailbox metadata, refreshed from the
// control plane when it is reachable. The refresh is best effort: an
// unreachable or unconfigured control plane still serves the mirror.
func (h *Me) Mailbox(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())

	if _, err := h.boxes.Sync(r.Context(), claims.Email); err != nil && !core.IsNotFound(err) {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("mailbox", claims.Email).Msg("mailbox refresh failed, serving mirror")
	}

	box, err := h.boxes.GetByEmail(r.Context(), claims.Email)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	response.WriteJSON(w, http.StatusOK, box)
}

func (h *Me) Limit(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())

	l, err := h.sending.GetByUserID(r.Context(), claims.Subject)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"limit":         l,
		"usage_percent": l.UsagePercent(),
		"state":         l.State(),
	})
}

// SendCheck runs the admission check for one outbound message. A
// policy rejection is a 429, not an error.
func (h *Me) SendCheck(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())

	var req struct {
		RecipientEmail string  `json:"recipient_email" validate:"required,email"`
		RecipientCount int     `json:"recipient_count" validate:"omitempty,min=1"`
		Subject        *string `json:"subject"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ip := r.RemoteAddr
	result, err := h.sending.CheckAndRecord(r.Context(), core.SendRequest{
		UserID:         claims.Subject,
		RecipientEmail: req.RecipientEmail,
		RecipientCount: req.RecipientCount,
		Subject:        req.Subject,
		IPAddress:      &ip,
	})
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}

	status := http.StatusOK
	if !result.Admitted {
		status = http.StatusTooManyRequests
	}
	response.WriteJSON(w, status, result)
}

func (h *Me) ListTickets(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())

	tickets, err := h.tickets.ListByUser(r.Context(), claims.Subject)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	response.WriteJSON(w, http.StatusOK, tickets)
}

func (h *Me) CreateTicket(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())

	var req struct {
		Subject string `json:"subject" validate:"required"`
		Body    string `json:"body" validate:"required"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.tickets.Create(r.Context(), claims.Subject, req.Subject, req.Body)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	response.WriteJSON(w, http.StatusCreated, t)
}

func (h *Me) Announcements(w http.ResponseWriter, r *http.Request) {
	items, err := h.news.List(r.Context(), true)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	response.WriteJSON(w, http.StatusOK, items)
}

func (h *Me) ListDomains(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())
	p := request.ParsePagination(r)

	domains, hasMore, err := h.domains.List(r.Context(), claims.Subject, p.Limit, p.Cursor)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}

	items := make([]domainResponse, 0, len(domains))
	for i := range domains {
		resp := domainResponse{CustomDomain: domains[i]}
		if domains[i].VerificationCode != nil {
			resp.TXTRecord = h.domains.TXTRecord(*domains[i].VerificationCode)
		}
		items = append(items, resp)
	}

	nextCursor := ""
	if hasMore && len(domains) > 0 {
		nextCursor = domains[len(domains)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, items, nextCursor, hasMore)
}

func (h *Me) RegisterDomain(w http.ResponseWriter, r *http.Request) {
	claims := mw.GetClaims(r.Context())

	var req struct {
		Domain string `json:"domain" validate:"required,fqdn"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.domains.Register(r.Context(), req.Domain, &claims.Subject)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	resp := domainResponse{CustomDomain: *d}
	if d.VerificationCode != nil {
		resp.TXTRecord = h.domains.TXTRecord(*d.VerificationCode)
	}
	response.WriteJSON(w, http.StatusCreated, resp)
}

// ownDomain loads a domain and refuses access unless the caller owns
// it. A foreign ID reads as not found so IDs cannot be probed.
func (h *Me) ownDomain(r *http.Request) (string, error) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		return "", core.Validationf("%s", err.Error())
	}
	claims := mw.GetClaims(r.Context())

	d, err := h.domains.GetByID(r.Context(), id)
	if err != nil {
		return "", err
	}
	if d.UserID == nil || *d.UserID != claims.Subject {
		return "", fmt.Errorf("%w: custom domain", core.ErrNotFound)
	}
	return id, nil
}

func (h *Me) VerifyDomain(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownDomain(r)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}

	d, err := h.domains.Verify(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	resp := domainResponse{CustomDomain: *d}
	if d.VerificationCode != nil {
		resp.TXTRecord = h.domains.TXTRecord(*d.VerificationCode)
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *Me) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownDomain(r)
	if err != nil {
		response.WriteServiceError(w, err, false)
		return
	}

	if err := h.domains.Delete(r.Context(), id); err != nil {
		response.WriteServiceError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
