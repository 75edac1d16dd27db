package model

import "time"

// MailboxMetadata caches quota information for a mailbox whose
// authoritative record lives in the mail control plane.
type MailboxMetadata struct {
	ID         string    `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	UserID     *string   `json:"user_id,omitempty" db:"user_id"`
	QuotaBytes int64     `json:"quota_bytes" db:"quota_bytes"`
	UsageBytes int64     `json:"usage_bytes" db:"usage_bytes"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	LastSynced time.Time `json:"last_synced" db:"last_synced"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// UsagePercent reports local quota usage. A zero quota reads as 0%.
func (m *MailboxMetadata) UsagePercent() float64 {
	if m.QuotaBytes == 0 {
		return 0
	}
	return float64(m.UsageBytes) / float64(m.QuotaBytes) * 100
}
