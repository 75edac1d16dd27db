package model

import "time"

// UserGroup organizes users for bulk admin operations. Membership is
// organizational only; it grants nothing.
type UserGroup struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Color       string    `json:"color" db:"color"`
	MemberCount int       `json:"member_count" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// GroupMember is the user-facing view of one membership row.
type GroupMember struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	IsSuspended bool      `json:"is_suspended"`
	AddedAt     time.Time `json:"added_at"`
}
