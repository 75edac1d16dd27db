package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

var domainNameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// DomainService mirrors mail domains between the local database and the
// mail control plane. Writes go to the control plane first; a local row
// is only touched after the remote accepted the change. When the
// control plane is unconfigured the service degrades to local-only
// bookkeeping.
type DomainService struct {
	db DB
	mc *mailcow.Client
}

func NewDomainService(db DB, mc *mailcow.Client) *DomainService {
	return &DomainService{db: db, mc: mc}
}

// CreateDomainParams carries the fields accepted on domain creation.
// Quota values are bytes and only reach the control plane; the local
// mirror does not store them.
type CreateDomainParams struct {
	Domain             string
	Description        string
	IsPrimary          bool
	MaxAliases         int
	MaxMailboxes       int
	MaxQuotaPerMailbox int64
	TotalQuota         int64
}

// DomainWithStats is a local domain row joined with live control plane
// numbers when they were reachable.
type DomainWithStats struct {
	model.MailDomain
	MailboxCount int64  `json:"mailbox_count"`
	AliasCount   int64  `json:"alias_count"`
	QuotaBytes   *int64 `json:"quota_bytes,omitempty"`
	UsedBytes    *int64 `json:"used_bytes,omitempty"`
}

func (s *DomainService) List(ctx context.Context, limit int, cursor string) ([]model.MailDomain, bool, error) {
	query := `SELECT id, domain, is_primary, is_active, description, created_at, updated_at FROM mail_domains`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var domains []model.MailDomain
	for rows.Next() {
		var d model.MailDomain
		if err := rows.Scan(&d.ID, &d.Domain, &d.IsPrimary, &d.IsActive, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate domains: %w", err)
	}

	hasMore := len(domains) > limit
	if hasMore {
		domains = domains[:limit]
	}
	return domains, hasMore, nil
}

// ListWithStats decorates each local domain with control plane counts.
// Control plane failures degrade to bare local rows rather than failing
// the listing.
func (s *DomainService) ListWithStats(ctx context.Context, limit int, cursor string) ([]DomainWithStats, bool, error) {
	domains, hasMore, err := s.List(ctx, limit, cursor)
	if err != nil {
		return nil, false, err
	}

	out := make([]DomainWithStats, 0, len(domains))
	remote := map[string]mailcow.DomainInfo{}
	if s.mc.IsConfigured() {
		infos, err := s.mc.ListDomains(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("control plane unreachable, listing domains without stats")
		}
		for _, info := range infos {
			remote[info.Domain] = info
		}
	}

	for _, d := range domains {
		ds := DomainWithStats{MailDomain: d}
		if info, ok := remote[d.Domain]; ok {
			quota := int64(info.Quota)
			used := int64(info.QuotaUsed)
			ds.QuotaBytes = &quota
			ds.UsedBytes = &used
			ds.MailboxCount = int64(info.MaxMailboxes) - int64(info.MailboxesLeft)
			ds.AliasCount = int64(info.MaxAliases) - int64(info.AliasesLeft)
		}
		out = append(out, ds)
	}
	return out, hasMore, nil
}

func (s *DomainService) GetByID(ctx context.Context, id string) (*model.MailDomain, error) {
	var d model.MailDomain
	err := s.db.QueryRow(ctx,
		`SELECT id, domain, is_primary, is_active, description, created_at, updated_at
		 FROM mail_domains WHERE id = $1`, id,
	).Scan(&d.ID, &d.Domain, &d.IsPrimary, &d.IsActive, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: domain %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get domain %s: %w", id, err)
	}
	return &d, nil
}

func (s *DomainService) GetByName(ctx context.Context, domain string) (*model.MailDomain, error) {
	var d model.MailDomain
	err := s.db.QueryRow(ctx,
		`SELECT id, domain, is_primary, is_active, description, created_at, updated_at
		 FROM mail_domains WHERE domain = $1`, strings.ToLower(domain),
	).Scan(&d.ID, &d.Domain, &d.IsPrimary, &d.IsActive, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: domain %s", ErrNotFound, domain)
	}
	if err != nil {
		return nil, fmt.Errorf("get domain %s: %w", domain, err)
	}
	return &d, nil
}

// Create provisions the domain in the control plane and mirrors it
// locally. If the control plane rejects the domain no local row is
// written, so a failed create leaves no trace.
func (s *DomainService) Create(ctx context.Context, params CreateDomainParams) (*model.MailDomain, error) {
	name := strings.ToLower(strings.TrimSpace(params.Domain))
	if !domainNameRe.MatchString(name) {
		return nil, Validationf("invalid domain name %q", params.Domain)
	}

	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM mail_domains WHERE domain = $1)", name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check domain uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: domain %s", ErrConflict, name)
	}

	if s.mc.IsConfigured() {
		err := s.mc.CreateDomain(ctx, mailcow.CreateDomainParams{
			Domain:             name,
			Description:        params.Description,
			MaxAliases:         params.MaxAliases,
			MaxMailboxes:       params.MaxMailboxes,
			MaxQuotaPerMailbox: params.MaxQuotaPerMailbox,
			TotalQuota:         params.TotalQuota,
			Active:             true,
		})
		if err != nil {
			return nil, upstream("create domain "+name, err)
		}
	}

	if params.IsPrimary {
		if err := s.clearPrimary(ctx); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	d := &model.MailDomain{
		ID:        platform.NewID(),
		Domain:    name,
		IsPrimary: params.IsPrimary,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if params.Description != "" {
		d.Description = &params.Description
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO mail_domains (id, domain, is_primary, is_active, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.Domain, d.IsPrimary, d.IsActive, d.Description, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert domain: %w", err)
	}
	return d, nil
}

// UpdateDomainParams carries a partial domain update. Nil fields keep
// their value locally and remotely.
type UpdateDomainParams struct {
	Description        *string
	IsActive           *bool
	IsPrimary          *bool
	MaxAliases         *int
	MaxMailboxes       *int
	MaxQuotaPerMailbox *int64
	TotalQuota         *int64
}

// Update patches the control plane record first and only then the
// local mirror, so a remote rejection leaves the local row untouched.
func (s *DomainService) Update(ctx context.Context, id string, params UpdateDomainParams) (*model.MailDomain, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.mc.IsConfigured() {
		patch := mailcow.DomainPatch{
			Description:        params.Description,
			MaxAliases:         params.MaxAliases,
			MaxMailboxes:       params.MaxMailboxes,
			MaxQuotaPerMailbox: params.MaxQuotaPerMailbox,
			TotalQuota:         params.TotalQuota,
			Active:             params.IsActive,
		}
		if err := s.mc.UpdateDomain(ctx, d.Domain, patch); err != nil {
			return nil, upstream("update domain "+d.Domain, err)
		}
	}

	if params.IsPrimary != nil && *params.IsPrimary && !d.IsPrimary {
		if err := s.clearPrimary(ctx); err != nil {
			return nil, err
		}
	}

	if params.Description != nil {
		d.Description = params.Description
	}
	if params.IsActive != nil {
		d.IsActive = *params.IsActive
	}
	if params.IsPrimary != nil {
		d.IsPrimary = *params.IsPrimary
	}
	d.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx,
		`UPDATE mail_domains SET is_primary = $1, is_active = $2, description = $3, updated_at = $4 WHERE id = $5`,
		d.IsPrimary, d.IsActive, d.Description, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update domain %s: %w", d.Domain, err)
	}
	return d, nil
}

// Delete removes the domain remotely and locally. The primary domain
// cannot be deleted. When the control plane is configured a remote
// failure blocks the local delete so the mirror never claims a domain
// is gone while the control plane still serves it.
func (s *DomainService) Delete(ctx context.Context, id string) error {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.IsPrimary {
		return Validationf("domain %s is the primary domain and cannot be deleted", d.Domain)
	}

	if s.mc.IsConfigured() {
		if err := s.mc.DeleteDomain(ctx, d.Domain); err != nil {
			return upstream("delete domain "+d.Domain, err)
		}
	}

	_, err = s.db.Exec(ctx, "DELETE FROM mail_domains WHERE id = $1", d.ID)
	if err != nil {
		return fmt.Errorf("delete domain %s: %w", d.Domain, err)
	}
	return nil
}

// DomainSyncResult reports a one-domain pull from the control plane.
type DomainSyncResult struct {
	Domain string              `json:"domain"`
	Found  bool                `json:"found"`
	Remote *mailcow.DomainInfo `json:"remote,omitempty"`
}

// Sync pulls the remote record and overwrites the local activation
// state with it. The remote side is authoritative; local drift loses.
// A domain absent remotely is reported, not deleted.
func (s *DomainService) Sync(ctx context.Context, id string) (*DomainSyncResult, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.mc.IsConfigured() {
		return nil, Validationf("mail control plane is not configured")
	}

	info, err := s.mc.GetDomain(ctx, d.Domain)
	if err != nil {
		return nil, upstream("sync domain "+d.Domain, err)
	}
	if info == nil {
		return &DomainSyncResult{Domain: d.Domain, Found: false}, nil
	}

	_, err = s.db.Exec(ctx,
		`UPDATE mail_domains SET is_active = $1, updated_at = now() WHERE id = $2`,
		bool(info.Active), d.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("apply domain sync %s: %w", d.Domain, err)
	}
	return &DomainSyncResult{Domain: d.Domain, Found: true, Remote: info}, nil
}

func (s *DomainService) clearPrimary(ctx context.Context) error {
	_, err := s.db.Exec(ctx, "UPDATE mail_domains SET is_primary = FALSE, updated_at = now() WHERE is_primary")
	if err != nil {
		return fmt.Errorf("clear primary domain: %w", err)
	}
	return nil
}
