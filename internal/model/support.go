package model

import "time"

// SupportTicket is a user-filed support request.
type SupportTicket struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Subject    string    `json:"subject" db:"subject"`
	Body       string    `json:"body" db:"body"`
	Status     string    `json:"status" db:"status"`
	AdminReply *string   `json:"admin_reply,omitempty" db:"admin_reply"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Support ticket statuses.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketClosed     = "closed"
)
