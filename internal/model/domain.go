package model

import "time"

// MailDomain is the local mirror of a domain provisioned in the mail
// control plane. The remote record, when present, is authoritative for
// activation state and quota.
type MailDomain struct {
	ID          string    `json:"id" db:"id"`
	Domain      string    `json:"domain" db:"domain"`
	IsPrimary   bool      `json:"is_primary" db:"is_primary"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CustomDomain is a user-owned domain pending DNS verification.
type CustomDomain struct {
	ID                 string     `json:"id" db:"id"`
	Domain             string     `json:"domain" db:"domain"`
	UserID             *string    `json:"user_id,omitempty" db:"user_id"`
	VerificationStatus string     `json:"verification_status" db:"verification_status"`
	VerificationCode   *string    `json:"verification_code,omitempty" db:"verification_code"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty" db:"verified_at"`
}

// Custom domain verification states.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationFailed   = "failed"
)
