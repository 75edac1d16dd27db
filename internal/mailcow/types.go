package mailcow

import (
	"bytes"
	"strconv"
	"strings"
)

// Mailcow serializes numbers and booleans inconsistently: quotas arrive
// as numbers or numeric strings, flags as "1"/"0", 1/0 or booleans.
// Int64ish and Boolish absorb all of those forms.

type Int64ish int64

func (v *Int64ish) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*v = 0
		return nil
	}
	*v = Int64ish(n)
	return nil
}

type Boolish bool

func (v *Boolish) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*v = s == "1" || s == "true"
	return nil
}

// bool10 renders a bool the way the Mailcow API expects it.
func bool10(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// toMB converts a byte count to the megabyte units Mailcow uses on the
// wire for quota fields.
func toMB(bytes int64) int64 {
	return bytes / (1024 * 1024)
}

// DomainInfo is a domain record as reported by the control plane.
type DomainInfo struct {
	Domain             string   `json:"domain_name"`
	Description        string   `json:"description"`
	AliasesLeft        Int64ish `json:"aliases_left"`
	MailboxesLeft      Int64ish `json:"mboxes_left"`
	MaxAliases         Int64ish `json:"max_num_aliases_for_domain"`
	MaxMailboxes       Int64ish `json:"max_num_mboxes_for_domain"`
	MaxQuotaPerMailbox Int64ish `json:"max_quota_for_mbox"`
	Quota              Int64ish `json:"max_quota_for_domain"`
	QuotaUsed          Int64ish `json:"bytes_total"`
	Active             Boolish  `json:"active"`
}

// MailboxInfo is a mailbox record as reported by the control plane.
type MailboxInfo struct {
	Username      string   `json:"local_part"`
	Domain        string   `json:"domain"`
	Name          string   `json:"name"`
	Quota         Int64ish `json:"quota"`
	QuotaUsed     Int64ish `json:"quota_used"`
	Active        Boolish  `json:"active"`
	Messages      Int64ish `json:"messages"`
	LastIMAPLogin string   `json:"last_imap_login"`
	LastSMTPLogin string   `json:"last_smtp_login"`
}

// Email returns the full address of the mailbox.
func (m *MailboxInfo) Email() string {
	return m.Username + "@" + m.Domain
}

// AliasInfo is an alias record as reported by the control plane. Goto is
// the comma-separated target list.
type AliasInfo struct {
	ID      Int64ish `json:"id"`
	Address string   `json:"address"`
	Goto    string   `json:"goto"`
	Domain  string   `json:"domain"`
	Active  Boolish  `json:"active"`
}

// IsCatchAll reports whether the alias is a catch-all address.
func (a *AliasInfo) IsCatchAll() bool {
	return strings.HasPrefix(a.Address, "@")
}

// TargetAddresses splits the goto field into individual addresses.
func (a *AliasInfo) TargetAddresses() []string {
	var targets []string
	for _, t := range strings.Split(a.Goto, ",") {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}

// CreateDomainParams carries the fields for a domain create. Quota
// values are in bytes; the client converts to MB on the wire.
type CreateDomainParams struct {
	Domain             string
	Description        string
	MaxAliases         int
	MaxMailboxes       int
	MaxQuotaPerMailbox int64
	TotalQuota         int64
	DefaultQuota       int64
	Active             bool
}

// DomainPatch holds the fields of a domain update. Nil fields are
// omitted from the request so the remote record keeps its value.
type DomainPatch struct {
	Description        *string
	MaxAliases         *int
	MaxMailboxes       *int
	MaxQuotaPerMailbox *int64
	TotalQuota         *int64
	Active             *bool
}

func (p DomainPatch) attr() map[string]any {
	attr := map[string]any{}
	if p.Description != nil {
		attr["description"] = *p.Description
	}
	if p.MaxAliases != nil {
		attr["aliases"] = *p.MaxAliases
	}
	if p.MaxMailboxes != nil {
		attr["mailboxes"] = *p.MaxMailboxes
	}
	if p.MaxQuotaPerMailbox != nil {
		attr["maxquota"] = toMB(*p.MaxQuotaPerMailbox)
	}
	if p.TotalQuota != nil {
		attr["quota"] = toMB(*p.TotalQuota)
	}
	if p.Active != nil {
		attr["active"] = bool10(*p.Active)
	}
	return attr
}

// CreateMailboxParams carries the fields for a mailbox create.
type CreateMailboxParams struct {
	LocalPart  string
	Domain     string
	Password   string
	Name       string
	QuotaBytes int64
	Active     bool
}

// MailboxPatch holds the fields of a mailbox update.
type MailboxPatch struct {
	Name       *string
	QuotaBytes *int64
	Password   *string
	Active     *bool
}

func (p MailboxPatch) attr() map[string]any {
	attr := map[string]any{}
	if p.Name != nil {
		attr["name"] = *p.Name
	}
	if p.QuotaBytes != nil {
		attr["quota"] = toMB(*p.QuotaBytes)
	}
	if p.Password != nil {
		attr["password"] = *p.Password
		attr["password2"] = *p.Password
	}
	if p.Active != nil {
		attr["active"] = bool10(*p.Active)
	}
	return attr
}

// AliasPatch holds the fields of an alias update.
type AliasPatch struct {
	Address *string
	Goto    *string
	Active  *bool
}

func (p AliasPatch) attr() map[string]any {
	attr := map[string]any{}
	if p.Address != nil {
		attr["address"] = *p.Address
	}
	if p.Goto != nil {
		attr["goto"] = *p.Goto
	}
	if p.Active != nil {
		attr["active"] = bool10(*p.Active)
	}
	return attr
}

// JoinTargets renders a target list the way the alias API expects it.
func JoinTargets(targets []string) string {
	var b bytes.Buffer
	for i, t := range targets {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(strings.TrimSpace(t))
	}
	return b.String()
}
