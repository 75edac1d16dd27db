package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// SendingTierService manages the named limit policies users can be
// assigned to.
type SendingTierService struct {
	db DB
}

func NewSendingTierService(db DB) *SendingTierService {
	return &SendingTierService{db: db}
}

func (s *SendingTierService) List(ctx context.Context) ([]model.SendingTier, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, display_name, daily_limit, hourly_limit, price_monthly, is_active, sort_order, created_at, updated_at
		 FROM sending_tiers ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list sending tiers: %w", err)
	}
	defer rows.Close()

	var tiers []model.SendingTier
	for rows.Next() {
		var t model.SendingTier
		if err := rows.Scan(&t.ID, &t.Name, &t.DisplayName, &t.DailyLimit, &t.HourlyLimit, &t.PriceMonthly, &t.IsActive, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sending tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sending tiers: %w", err)
	}
	return tiers, nil
}

func (s *SendingTierService) GetByName(ctx context.Context, name string) (*model.SendingTier, error) {
	var t model.SendingTier
	err := s.db.QueryRow(ctx,
		`SELECT id, name, display_name, daily_limit, hourly_limit, price_monthly, is_active, sort_order, created_at, updated_at
		 FROM sending_tiers WHERE name = $1`, name,
	).Scan(&t.ID, &t.Name, &t.DisplayName, &t.DailyLimit, &t.HourlyLimit, &t.PriceMonthly, &t.IsActive, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: sending tier %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get sending tier %s: %w", name, err)
	}
	return &t, nil
}

// CreateTierParams carries the fields for a new tier.
type CreateTierParams struct {
	Name         string
	DisplayName  string
	DailyLimit   int
	HourlyLimit  int
	PriceMonthly float64
	SortOrder    int
}

func (s *SendingTierService) Create(ctx context.Context, params CreateTierParams) (*model.SendingTier, error) {
	name := strings.ToLower(strings.TrimSpace(params.Name))
	if name == "" {
		return nil, Validationf("tier name is required")
	}
	if params.DailyLimit < 0 || params.HourlyLimit < 0 {
		return nil, Validationf("tier limits must not be negative")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM sending_tiers WHERE name = $1)", name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check tier uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: sending tier %s", ErrConflict, name)
	}

	now := time.Now()
	t := &model.SendingTier{
		ID:           platform.NewID(),
		Name:         name,
		DisplayName:  params.DisplayName,
		DailyLimit:   params.DailyLimit,
		HourlyLimit:  params.HourlyLimit,
		PriceMonthly: params.PriceMonthly,
		IsActive:     true,
		SortOrder:    params.SortOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO sending_tiers (id, name, display_name, daily_limit, hourly_limit, price_monthly, is_active, sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Name, t.DisplayName, t.DailyLimit, t.HourlyLimit, t.PriceMonthly, t.IsActive, t.SortOrder, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert sending tier: %w", err)
	}
	return t, nil
}

// UpdateTierParams carries a partial tier update. Changing a tier's
// limits does not rewrite limits already assigned to users.
type UpdateTierParams struct {
	DisplayName  *string
	DailyLimit   *int
	HourlyLimit  *int
	PriceMonthly *float64
	IsActive     *bool
	SortOrder    *int
}

func (s *SendingTierService) Update(ctx context.Context, name string, params UpdateTierParams) (*model.SendingTier, error) {
	t, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if params.DisplayName != nil {
		t.DisplayName = *params.DisplayName
	}
	if params.DailyLimit != nil {
		if *params.DailyLimit < 0 {
			return nil, Validationf("tier limits must not be negative")
		}
		t.DailyLimit = *params.DailyLimit
	}
	if params.HourlyLimit != nil {
		if *params.HourlyLimit < 0 {
			return nil, Validationf("tier limits must not be negative")
		}
		t.HourlyLimit = *params.HourlyLimit
	}
	if params.PriceMonthly != nil {
		t.PriceMonthly = *params.PriceMonthly
	}
	if params.IsActive != nil {
		t.IsActive = *params.IsActive
	}
	if params.SortOrder != nil {
		t.SortOrder = *params.SortOrder
	}
	t.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx,
		`UPDATE sending_tiers SET display_name = $1, daily_limit = $2, hourly_limit = $3, price_monthly = $4, is_active = $5, sort_order = $6, updated_at = $7
		 WHERE name = $8`,
		t.DisplayName, t.DailyLimit, t.HourlyLimit, t.PriceMonthly, t.IsActive, t.SortOrder, t.UpdatedAt, name,
	)
	if err != nil {
		return nil, fmt.Errorf("update sending tier %s: %w", name, err)
	}
	return t, nil
}

// Delete removes a tier. The default tier and tiers with assigned
// users are protected.
func (s *SendingTierService) Delete(ctx context.Context, name string) error {
	if name == model.DefaultTierName {
		return Validationf("the %s tier cannot be deleted", model.DefaultTierName)
	}

	var inUse bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM sending_limits WHERE tier_name = $1)", name).Scan(&inUse); err != nil {
		return fmt.Errorf("check tier usage: %w", err)
	}
	if inUse {
		return Validationf("sending tier %s has assigned users", name)
	}

	tag, err := s.db.Exec(ctx, "DELETE FROM sending_tiers WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("delete sending tier %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sending tier %s", ErrNotFound, name)
	}
	return nil
}
