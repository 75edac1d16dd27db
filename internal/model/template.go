package model

import (
	"encoding/json"
	"time"
)

// DefaultTemplateQuotaBytes is the mailbox quota a template starts
// with when none is given: 5 GiB.
const DefaultTemplateQuotaBytes int64 = 5 << 30

// UserTemplate is a reusable configuration applied when provisioning
// users. System templates ship with the platform and are immutable.
type UserTemplate struct {
	ID               string          `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Description      *string         `json:"description,omitempty" db:"description"`
	QuotaBytes       int64           `json:"quota_bytes" db:"quota_bytes"`
	Permissions      json.RawMessage `json:"permissions" db:"permissions"`
	IsSystemTemplate bool            `json:"is_system_template" db:"is_system_template"`
	CreatedBy        *string         `json:"created_by,omitempty" db:"created_by"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}
