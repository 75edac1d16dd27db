package model

import (
	"encoding/json"
	"time"
)

// SendingTier is a named sending-limit policy users can be assigned to.
type SendingTier struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	DailyLimit   int       `json:"daily_limit" db:"daily_limit"`
	HourlyLimit  int       `json:"hourly_limit" db:"hourly_limit"`
	PriceMonthly float64   `json:"price_monthly" db:"price_monthly"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	SortOrder    int       `json:"sort_order" db:"sort_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Default limits applied when a sending limit is created lazily without
// an explicit tier.
const (
	DefaultTierName    = "free"
	DefaultDailyLimit  = 50
	DefaultHourlyLimit = 10
)

// SendingLimit holds per-user rolling counters and the enable gate. One
// row per user. Counters roll over lazily at admission-check time.
type SendingLimit struct {
	ID                 string    `json:"id" db:"id"`
	UserID             string    `json:"user_id" db:"user_id"`
	TierName           string    `json:"tier_name" db:"tier_name"`
	DailyLimit         int       `json:"daily_limit" db:"daily_limit"`
	HourlyLimit        int       `json:"hourly_limit" db:"hourly_limit"`
	EmailsSentToday    int       `json:"emails_sent_today" db:"emails_sent_today"`
	EmailsSentThisHour int       `json:"emails_sent_this_hour" db:"emails_sent_this_hour"`
	LastResetDate      time.Time `json:"last_reset_date" db:"last_reset_date"`
	LastResetHour      time.Time `json:"last_reset_hour" db:"last_reset_hour"`
	IsSendingEnabled   bool      `json:"is_sending_enabled" db:"is_sending_enabled"`
	CustomLimitReason  *string   `json:"custom_limit_reason,omitempty" db:"custom_limit_reason"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// UsagePercent reports daily usage. A zero daily limit reads as 0%.
func (l *SendingLimit) UsagePercent() float64 {
	if l.DailyLimit == 0 {
		return 0
	}
	return float64(l.EmailsSentToday) / float64(l.DailyLimit) * 100
}

// Sending states derived from a limit record.
const (
	SendingStateActive    = "active"
	SendingStateNearLimit = "near_limit"
	SendingStateAtLimit   = "at_limit"
	SendingStateSuspended = "suspended"
)

// State derives the sending state. Suspended wins over counter state;
// at-limit is reached when either window is exhausted; near-limit starts
// at 80% of the daily limit.
func (l *SendingLimit) State() string {
	if !l.IsSendingEnabled {
		return SendingStateSuspended
	}
	if l.EmailsSentToday >= l.DailyLimit || l.EmailsSentThisHour >= l.HourlyLimit {
		return SendingStateAtLimit
	}
	if l.UsagePercent() >= 80 {
		return SendingStateNearLimit
	}
	return SendingStateActive
}

// Violation types.
const (
	ViolationDailyExceeded   = "daily_exceeded"
	ViolationHourlyExceeded  = "hourly_exceeded"
	ViolationSendingDisabled = "sending_disabled"
)

// SendingLimitViolation records a rejected send attempt. Rows are
// append-only; the only mutation is unresolved -> resolved.
type SendingLimitViolation struct {
	ID             string          `json:"id" db:"id"`
	UserID         string          `json:"user_id" db:"user_id"`
	ViolationType  string          `json:"violation_type" db:"violation_type"`
	AttemptedCount int             `json:"attempted_count" db:"attempted_count"`
	LimitAtTime    int             `json:"limit_at_time" db:"limit_at_time"`
	Details        json.RawMessage `json:"details,omitempty" db:"details"`
	ActionTaken    string          `json:"action_taken" db:"action_taken"`
	AdminNotes     *string         `json:"admin_notes,omitempty" db:"admin_notes"`
	IsResolved     bool            `json:"is_resolved" db:"is_resolved"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy     *string         `json:"resolved_by,omitempty" db:"resolved_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// SendLog is an append-only record of a send attempt, admitted or not.
type SendLog struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	RecipientEmail string    `json:"recipient_email" db:"recipient_email"`
	RecipientCount int       `json:"recipient_count" db:"recipient_count"`
	Subject        *string   `json:"subject,omitempty" db:"subject"`
	Status         string    `json:"status" db:"status"`
	BlockedReason  *string   `json:"blocked_reason,omitempty" db:"blocked_reason"`
	IPAddress      *string   `json:"ip_address,omitempty" db:"ip_address"`
	SentAt         time.Time `json:"sent_at" db:"sent_at"`
}

// Send log statuses.
const (
	SendStatusSent    = "sent"
	SendStatusBlocked = "blocked"
)

// SendingStats is the admin dashboard summary of limit usage.
type SendingStats struct {
	TotalSentToday   int64 `json:"total_sent_today"`
	UsersAtLimit     int64 `json:"users_at_limit"`
	UsersNearLimit   int64 `json:"users_near_limit"`
	ActiveViolations int64 `json:"active_violations"`
	TotalUsers       int64 `json:"total_users"`
	FreeTierUsers    int64 `json:"free_tier_users"`
}
