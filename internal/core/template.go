package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// UserTemplateService manages the saved configurations applied when
// provisioning users. System templates are read-only.
type UserTemplateService struct {
	db DB
}

func NewUserTemplateService(db DB) *UserTemplateService {
	return &UserTemplateService{db: db}
}

const templateColumns = `id, name, description, quota_bytes, permissions, is_system_template, created_by, created_at, updated_at`

func scanTemplate(row pgx.Row, t *model.UserTemplate) error {
	return row.Scan(&t.ID, &t.Name, &t.Description, &t.QuotaBytes, &t.Permissions, &t.IsSystemTemplate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
}

func (s *UserTemplateService) List(ctx context.Context) ([]model.UserTemplate, error) {
	rows, err := s.db.Query(ctx, `SELECT `+templateColumns+` FROM user_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.UserTemplate
	for rows.Next() {
		var t model.UserTemplate
		if err := scanTemplate(rows, &t); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

func (s *UserTemplateService) Get(ctx context.Context, id string) (*model.UserTemplate, error) {
	var t model.UserTemplate
	err := scanTemplate(s.db.QueryRow(ctx, `SELECT `+templateColumns+` FROM user_templates WHERE id = $1`, id), &t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: template %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	return &t, nil
}

// CreateTemplateParams carries the fields for a new template. A zero
// quota takes the platform default.
type CreateTemplateParams struct {
	Name        string
	Description *string
	QuotaBytes  int64
	Permissions json.RawMessage
	CreatedBy   *string
}

func (s *UserTemplateService) Create(ctx context.Context, params CreateTemplateParams) (*model.UserTemplate, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, Validationf("template name is required")
	}
	if params.QuotaBytes < 0 {
		return nil, Validationf("quota must not be negative")
	}
	quota := params.QuotaBytes
	if quota == 0 {
		quota = model.DefaultTemplateQuotaBytes
	}
	permissions := params.Permissions
	if len(permissions) == 0 {
		permissions = json.RawMessage("{}")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM user_templates WHERE name = $1)", name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check template uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: template %s", ErrConflict, name)
	}

	now := time.Now()
	t := &model.UserTemplate{
		ID:          platform.NewID(),
		Name:        name,
		Description: params.Description,
		QuotaBytes:  quota,
		Permissions: permissions,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO user_templates (id, name, description, quota_bytes, permissions, is_system_template, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8)`,
		t.ID, t.Name, t.Description, t.QuotaBytes, t.Permissions, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	return t, nil
}

// UpdateTemplateParams carries a partial template update.
type UpdateTemplateParams struct {
	Name        *string
	Description *string
	QuotaBytes  *int64
	Permissions json.RawMessage
}

func (s *UserTemplateService) Update(ctx context.Context, id string, params UpdateTemplateParams) (*model.UserTemplate, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsSystemTemplate {
		return nil, Validationf("system templates cannot be modified")
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, Validationf("template name is required")
		}
		t.Name = name
	}
	if params.Description != nil {
		t.Description = params.Description
	}
	if params.QuotaBytes != nil {
		if *params.QuotaBytes <= 0 {
			return nil, Validationf("quota must be positive")
		}
		t.QuotaBytes = *params.QuotaBytes
	}
	if len(params.Permissions) > 0 {
		t.Permissions = params.Permissions
	}
	t.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx,
		`UPDATE user_templates SET name = $1, description = $2, quota_bytes = $3, permissions = $4, updated_at = $5 WHERE id = $6`,
		t.Name, t.Description, t.QuotaBytes, t.Permissions, t.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template %s: %w", id, err)
	}
	return t, nil
}

func (s *UserTemplateService) Delete(ctx context.Context, id string) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.IsSystemTemplate {
		return Validationf("system templates cannot be deleted")
	}

	tag, err := s.db.Exec(ctx, "DELETE FROM user_templates WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: template %s", ErrNotFound, id)
	}
	return nil
}
