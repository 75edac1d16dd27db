package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// SupportTicketService manages user-filed support requests.
type SupportTicketService struct {
	db DB
}

func NewSupportTicketService(db DB) *SupportTicketService {
	return &SupportTicketService{db: db}
}

// TicketWithUser joins a ticket with the filer's email for admin
// listings.
type TicketWithUser struct {
	model.SupportTicket
	Email string `json:"email"`
}

func (s *SupportTicketService) List(ctx context.Context, status string, limit int, cursor string) ([]TicketWithUser, bool, error) {
	query := `SELECT t.id, t.user_id, t.subject, t.body, t.status, t.admin_reply, t.created_at, t.updated_at, u.email
	          FROM support_tickets t JOIN users u ON u.id = t.user_id`
	var conds []string
	args := []any{}
	argIdx := 1

	if status != "" {
		conds = append(conds, fmt.Sprintf("t.status = $%d", argIdx))
		args = append(args, status)
		argIdx++
	}
	if cursor != "" {
		conds = append(conds, fmt.Sprintf("t.id < $%d", argIdx))
		args = append(args, cursor)
		argIdx++
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	query += ` ORDER BY t.id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list support tickets: %w", err)
	}
	defer rows.Close()

	var tickets []TicketWithUser
	for rows.Next() {
		var t TicketWithUser
		if err := rows.Scan(&t.ID, &t.UserID, &t.Subject, &t.Body, &t.Status, &t.AdminReply, &t.CreatedAt, &t.UpdatedAt, &t.Email); err != nil {
			return nil, false, fmt.Errorf("scan support ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate support tickets: %w", err)
	}

	hasMore := len(tickets) > limit
	if hasMore {
		tickets = tickets[:limit]
	}
	return tickets, hasMore, nil
}

func (s *SupportTicketService) ListByUser(ctx context.Context, userID string) ([]model.SupportTicket, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, subject, body, status, admin_reply, created_at, updated_at
		 FROM support_tickets WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tickets for user %s: %w", userID, err)
	}
	defer rows.Close()

	var tickets []model.SupportTicket
	for rows.Next() {
		var t model.SupportTicket
		if err := rows.Scan(&t.ID, &t.UserID, &t.Subject, &t.Body, &t.Status, &t.AdminReply, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan support ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate support tickets: %w", err)
	}
	return tickets, nil
}

func (s *SupportTicketService) GetByID(ctx context.Context, id string) (*model.SupportTicket, error) {
	var t model.SupportTicket
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, subject, body, status, admin_reply, created_at, updated_at
		 FROM support_tickets WHERE id = $1`, id,
	).Scan(&t.ID, &t.UserID, &t.Subject, &t.Body, &t.Status, &t.AdminReply, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: support ticket %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get support ticket %s: %w", id, err)
	}
	return &t, nil
}

func (s *SupportTicketService) Create(ctx context.Context, userID, subject, body string) (*model.SupportTicket, error) {
	if subject == "" || body == "" {
		return nil, Validationf("ticket requires a subject and a body")
	}
	now := time.Now()
	t := &model.SupportTicket{
		ID:        platform.NewID(),
		UserID:    userID,
		Subject:   subject,
		Body:      body,
		Status:    model.TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO support_tickets (id, user_id, subject, body, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.Subject, t.Body, t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert support ticket: %w", err)
	}
	return t, nil
}

// Reply records an admin response and moves the ticket along.
func (s *SupportTicketService) Reply(ctx context.Context, id, reply, status string) (*model.SupportTicket, error) {
	switch status {
	case model.TicketOpen, model.TicketInProgress, model.TicketClosed:
	default:
		return nil, Validationf("unknown ticket status %q", status)
	}

	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.AdminReply = &reply
	t.Status = status
	t.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx,
		"UPDATE support_tickets SET admin_reply = $1, status = $2, updated_at = $3 WHERE id = $4",
		t.AdminReply, t.Status, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("reply to support ticket %s: %w", id, err)
	}
	return t, nil
}
