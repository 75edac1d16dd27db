package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// AliasService mirrors aliases and distribution lists. Aliases carry an
// external id assigned by the control plane; a local row without one
// means the alias was created while the control plane was unconfigured
// or the id lookup after create failed, which is tolerated.
type AliasService struct {
	db DB
	mc *mailcow.Client
}

func NewAliasService(db DB, mc *mailcow.Client) *AliasService {
	return &AliasService{db: db, mc: mc}
}

// CreateAliasParams carries the fields accepted on alias creation. A
// catch-all is expressed as an address starting with "@".
type CreateAliasParams struct {
	Address            string
	Targets            []string
	IsDistributionList bool
	Description        string
	CreatedBy          *string
}

func (s *AliasService) List(ctx context.Context, limit int, cursor string) ([]model.EmailAlias, bool, error) {
	query := `SELECT id, alias_address, target_addresses, is_distribution_list, description, active, created_by, mailcow_id, created_at, updated_at FROM email_aliases`
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
		return nil, false, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var aliases []model.EmailAlias
	for rows.Next() {
		var a model.EmailAlias
		if err := rows.Scan(&a.ID, &a.AliasAddress, &a.TargetAddresses, &a.IsDistributionList, &a.Description, &a.Active, &a.CreatedBy, &a.MailcowID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate aliases: %w", err)
	}

	hasMore := len(aliases) > limit
	if hasMore {
		aliases = aliases[:limit]
	}
	return aliases, hasMore, nil
}

func (s *AliasService) GetByID(ctx context.Context, id string) (*model.EmailAlias, error) {
	var a model.EmailAlias
	err := s.db.QueryRow(ctx,
		`SELECT id, alias_address, target_addresses, is_distribution_list, description, active, created_by, mailcow_id, created_at, updated_at
		 FROM email_aliases WHERE id = $1`, id,
	).Scan(&a.ID, &a.AliasAddress, &a.TargetAddresses, &a.IsDistributionList, &a.Description, &a.Active, &a.CreatedBy, &a.MailcowID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: alias %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get alias %s: %w", id, err)
	}
	return &a, nil
}

// Create provisions the alias in the control plane, captures its
// external id, and mirrors it locally. The post-create id lookup is
// best effort: if it fails the alias still exists on both sides and
// the local row simply carries no external id.
func (s *AliasService) Create(ctx context.Context, params CreateAliasParams) (*model.EmailAlias, error) {
	address := strings.ToLower(strings.TrimSpace(params.Address))
	if address == "" || !strings.Contains(address, "@") {
		return nil, Validationf("invalid alias address %q", params.Address)
	}
	if len(params.Targets) == 0 {
		return nil, Validationf("alias requires at least one target address")
	}

	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM email_aliases WHERE alias_address = $1)", address).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check alias uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: alias %s", ErrConflict, address)
	}

	var mailcowID *string
	if s.mc.IsConfigured() {
		if err := s.mc.CreateAlias(ctx, address, mailcow.JoinTargets(params.Targets), true); err != nil {
			return nil, upstream("create alias "+address, err)
		}
		info, err := s.mc.FindAlias(ctx, address)
		if err != nil || info == nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("alias", address).Msg("could not resolve external alias id after create")
		} else {
			id := strconv.FormatInt(int64(info.ID), 10)
			mailcowID = &id
		}
	}

	now := time.Now()
	a := &model.EmailAlias{
		ID:                 platform.NewID(),
		AliasAddress:       address,
		TargetAddresses:    params.Targets,
		IsDistributionList: params.IsDistributionList,
		Active:             true,
		CreatedBy:          params.CreatedBy,
		MailcowID:          mailcowID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if params.Description != "" {
		a.Description = &params.Description
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO email_aliases (id, alias_address, target_addresses, is_distribution_list, description, active, created_by, mailcow_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.AliasAddress, a.TargetAddresses, a.IsDistributionList, a.Description, a.Active, a.CreatedBy, a.MailcowID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert alias: %w", err)
	}
	return a, nil
}

// CreateCatchAll provisions a catch-all for the whole domain. The
// control plane models it as an alias whose address is "@domain", so
// the mirror row follows the same shape.
func (s *AliasService) CreateCatchAll(ctx context.Context, domain string, targets []string, createdBy *string) (*model.EmailAlias, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || strings.Contains(domain, "@") {
		return nil, Validationf("invalid catch-all domain %q", domain)
	}
	if len(targets) == 0 {
		return nil, Validationf("catch-all requires at least one target address")
	}
	address := "@" + domain

	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM email_aliases WHERE alias_address = $1)", address).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check catch-all uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: catch-all for %s", ErrConflict, domain)
	}

	var mailcowID *string
	if s.mc.IsConfigured() {
		if err := s.mc.CreateCatchAll(ctx, domain, mailcow.JoinTargets(targets)); err != nil {
			return nil, upstream("create catch-all for "+domain, err)
		}
		info, err := s.mc.FindAlias(ctx, address)
		if err != nil || info == nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("domain", domain).Msg("could not resolve external catch-all id after create")
		} else {
			id := strconv.FormatInt(int64(info.ID), 10)
			mailcowID = &id
		}
	}

	now := time.Now()
	a := &model.EmailAlias{
		ID:              platform.NewID(),
		AliasAddress:    address,
		TargetAddresses: targets,
		Active:          true,
		CreatedBy:       createdBy,
		MailcowID:       mailcowID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO email_aliases (id, alias_address, target_addresses, is_distribution_list, description, active, created_by, mailcow_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.AliasAddress, a.TargetAddresses, a.IsDistributionList, a.Description, a.Active, a.CreatedBy, a.MailcowID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert catch-all: %w", err)
	}
	return a, nil
}

// UpdateAliasParams carries a partial alias update.
type UpdateAliasParams struct {
	Targets     []string
	Description *string
	Active      *bool
}

// Update patches the control plane record first when the external id is
// known. Without an external id only the local row changes.
func (s *AliasService) Update(ctx context.Context, id string, params UpdateAliasParams) (*model.EmailAlias, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.mc.IsConfigured() && a.MailcowID != nil {
		patch := mailcow.AliasPatch{Active: params.Active}
		if params.Targets != nil {
			targets := mailcow.JoinTargets(params.Targets)
			patch.Goto = &targets
		}
		if err := s.mc.UpdateAlias(ctx, *a.MailcowID, patch); err != nil {
			return nil, upstream("update alias "+a.AliasAddress, err)
		}
	}

	if params.Targets != nil {
		a.TargetAddresses = params.Targets
	}
	if params.Description != nil {
		a.Description = params.Description
	}
	if params.Active != nil {
		a.Active = *params.Active
	}
	a.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx,
		`UPDATE email_aliases SET target_addresses = $1, description = $2, active = $3, updated_at = $4 WHERE id = $5`,
		a.TargetAddresses, a.Description, a.Active, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update alias %s: %w", a.AliasAddress, err)
	}
	return a, nil
}

// Delete removes the alias remotely and locally. With a known external
// id a remote failure blocks the local delete. Without one the local
// row is removed unconditionally; there is nothing remote to protect.
func (s *AliasService) Delete(ctx context.Context, id string) error {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if s.mc.IsConfigured() && a.MailcowID != nil {
		if err := s.mc.DeleteAlias(ctx, *a.MailcowID); err != nil {
			return upstream("delete alias "+a.AliasAddress, err)
		}
	}

	_, err = s.db.Exec(ctx, "DELETE FROM email_aliases WHERE id = $1", a.ID)
	if err != nil {
		return fmt.Errorf("delete alias %s: %w", a.AliasAddress, err)
	}
	return nil
}

// AliasSyncStatus pairs a local alias with whether the control plane
// still knows it.
type AliasSyncStatus struct {
	model.EmailAlias
	RemoteFound bool `json:"remote_found"`
}

// CheckSync compares local aliases against the control plane. Used by
// the admin dashboard to surface drift; the comparison never mutates.
func (s *AliasService) CheckSync(ctx context.Context, limit int, cursor string) ([]AliasSyncStatus, bool, error) {
	aliases, hasMore, err := s.List(ctx, limit, cursor)
	if err != nil {
		return nil, false, err
	}
	if !s.mc.IsConfigured() {
		return nil, false, Validationf("mail control plane is not configured")
	}

	out := make([]AliasSyncStatus, 0, len(aliases))
	for _, a := range aliases {
		info, err := s.mc.FindAlias(ctx, a.AliasAddress)
		if err != nil {
			return nil, false, upstream("check alias "+a.AliasAddress, err)
		}
		out = append(out, AliasSyncStatus{EmailAlias: a, RemoteFound: info != nil})
	}
	return out, hasMore, nil
}

// AdoptExternalID re-resolves a missing external id from the control
// plane. No-op when the alias already carries one.
func (s *AliasService) AdoptExternalID(ctx context.Context, id string) (*model.EmailAlias, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.MailcowID != nil {
		return a, nil
	}
	if !s.mc.IsConfigured() {
		return nil, Validationf("mail control plane is not configured")
	}

	info, err := s.mc.FindAlias(ctx, a.AliasAddress)
	if err != nil {
		return nil, upstream("resolve alias "+a.AliasAddress, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: alias %s has no remote record", ErrNotFound, a.AliasAddress)
	}

	extID := strconv.FormatInt(int64(info.ID), 10)
	a.MailcowID = &extID
	a.UpdatedAt = time.Now()
	_, err = s.db.Exec(ctx,
		"UPDATE email_aliases SET mailcow_id = $1, updated_at = $2 WHERE id = $3",
		a.MailcowID, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("store external alias id %s: %w", a.AliasAddress, err)
	}
	return a, nil
}
