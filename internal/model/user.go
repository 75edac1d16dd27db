package model

import "time"

// User is an end-user account. Recovery contact fields are stored
// encrypted alongside a deterministic hash used for equality lookups;
// plaintext never reaches the database.
type User struct {
	ID                string    `json:"id" db:"id"`
	Email             string    `json:"email" db:"email"`
	PasswordHash      string    `json:"-" db:"password_hash"`
	FirstName         string    `json:"first_name" db:"first_name"`
	LastName          string    `json:"last_name" db:"last_name"`
	IsSuspended       bool      `json:"is_suspended" db:"is_suspended"`
	RecoveryEmailEnc  *string   `json:"-" db:"recovery_email_enc"`
	RecoveryEmailHash *string   `json:"-" db:"recovery_email_hash"`
	RecoveryPhoneEnc  *string   `json:"-" db:"recovery_phone_enc"`
	RecoveryPhoneHash *string   `json:"-" db:"recovery_phone_hash"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`

	// Decrypted views, populated on read when the codec is configured.
	RecoveryEmail *string `json:"recovery_email,omitempty" db:"-"`
	RecoveryPhone *string `json:"recovery_phone,omitempty" db:"-"`
}

// AdminRole is a closed set of admin permission levels.
type AdminRole string

const (
	RoleSuperadmin AdminRole = "superadmin"
	RoleAdmin      AdminRole = "admin"
	RoleSupport    AdminRole = "support"
)

// Valid reports whether the role is one of the known values.
func (r AdminRole) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleSupport:
		return true
	}
	return false
}

// CanManageAdmins reports whether the role may create or modify other
// admin accounts.
func (r AdminRole) CanManageAdmins() bool {
	return r == RoleSuperadmin
}

// AdminUser is an administrator account.
type AdminUser struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         AdminRole `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
