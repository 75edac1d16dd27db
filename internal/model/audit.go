package model

import (
	"encoding/json"
	"time"
)

// AuditLog records a state-changing admin action. Append-only; this is
// the only durable record of who changed what.
type AuditLog struct {
	ID              string          `json:"id" db:"id"`
	ActionType      string          `json:"action_type" db:"action_type"`
	AdminEmail      string          `json:"admin_email" db:"admin_email"`
	TargetUserEmail *string         `json:"target_user_email,omitempty" db:"target_user_email"`
	Details         json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress       *string         `json:"ip_address,omitempty" db:"ip_address"`
	Timestamp       time.Time       `json:"timestamp" db:"timestamp"`
}

// LoginActivity records one authentication attempt, successful or not.
// Failed attempts keep the email as presented so probing shows up.
type LoginActivity struct {
	ID            string    `json:"id" db:"id"`
	UserEmail     string    `json:"user_email" db:"user_email"`
	LoginTime     time.Time `json:"login_time" db:"login_time"`
	IPAddress     *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent     *string   `json:"user_agent,omitempty" db:"user_agent"`
	Success       bool      `json:"success" db:"success"`
	FailureReason *string   `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ActivityStats buckets the user base by recency of last login.
type ActivityStats struct {
	TotalUsers       int64 `json:"total_users"`
	ActiveLast7Days  int64 `json:"active_last_7_days"`
	ActiveLast30Days int64 `json:"active_last_30_days"`
	Inactive30Days   int64 `json:"inactive_30_days"`
	Inactive60Days   int64 `json:"inactive_60_days"`
	Inactive90Days   int64 `json:"inactive_90_days"`
	NeverLoggedIn    int64 `json:"never_logged_in"`
}

// InactiveUser is one row in the inactivity report.
type InactiveUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	IsSuspended bool       `json:"is_suspended"`
	CreatedAt   time.Time  `json:"created_at"`
}
