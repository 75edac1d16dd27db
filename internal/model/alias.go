package model

import "time"

// EmailAlias mirrors an alias or distribution list provisioned in the
// mail control plane. MailcowID holds the external-assigned id when the
// control plane reported one; a nil value means the alias was created
// while the control plane was unconfigured or the id could not be
// extracted, which is not an error.
type EmailAlias struct {
	ID                 string    `json:"id" db:"id"`
	AliasAddress       string    `json:"alias_address" db:"alias_address"`
	TargetAddresses    []string  `json:"target_addresses" db:"target_addresses"`
	IsDistributionList bool      `json:"is_distribution_list" db:"is_distribution_list"`
	Description        *string   `json:"description,omitempty" db:"description"`
	Active             bool      `json:"active" db:"active"`
	CreatedBy          *string   `json:"created_by,omitempty" db:"created_by"`
	MailcowID          *string   `json:"mailcow_id,omitempty" db:"mailcow_id"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
