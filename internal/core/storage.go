package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// StorageService reads quota consumption across the mailbox mirror and
// manages the quota presets offered to admins. Usage figures are as
// fresh as the last mailbox sync.
type StorageService struct {
	db DB
}

func NewStorageService(db DB) *StorageService {
	return &StorageService{db: db}
}

// Overview lists every mailbox's quota consumption, heaviest first.
func (s *StorageService) Overview(ctx context.Context) ([]model.StorageUsage, error) {
	rows, err := s.db.Query(ctx,
		`SELECT email, quota_bytes, usage_bytes, last_synced
		 FROM mailbox_metadata ORDER BY usage_bytes DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage overview: %w", err)
	}
	defer rows.Close()

	var usages []model.StorageUsage
	for rows.Next() {
		var u model.StorageUsage
		if err := rows.Scan(&u.Email, &u.QuotaBytes, &u.UsageBytes, &u.LastSynced); err != nil {
			return nil, fmt.Errorf("scan storage usage: %w", err)
		}
		u.UsagePercent = usagePercent(u.UsageBytes, u.QuotaBytes)
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate storage usage: %w", err)
	}
	return usages, nil
}

// Stats aggregates allocation and consumption, including the ten
// heaviest mailboxes.
func (s *StorageService) Stats(ctx context.Context) (*model.StorageStats, error) {
	var stats model.StorageStats
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(quota_bytes), 0), COALESCE(SUM(usage_bytes), 0),
		 COALESCE(AVG(CASE WHEN quota_bytes > 0 THEN usage_bytes::float8 / quota_bytes * 100 ELSE 0 END), 0),
		 COUNT(*) FILTER (WHERE quota_bytes > 0 AND usage_bytes::float8 >= quota_bytes * 0.9)
		 FROM mailbox_metadata`,
	).Scan(&stats.TotalAllocated, &stats.TotalUsed, &stats.AverageUsagePercent, &stats.UsersOver90Percent)
	if err != nil {
		return nil, fmt.Errorf("storage stats: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT email, quota_bytes, usage_bytes, last_synced
		 FROM mailbox_metadata ORDER BY usage_bytes DESC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("storage top users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u model.StorageUsage
		if err := rows.Scan(&u.Email, &u.QuotaBytes, &u.UsageBytes, &u.LastSynced); err != nil {
			return nil, fmt.Errorf("scan top user: %w", err)
		}
		u.UsagePercent = usagePercent(u.UsageBytes, u.QuotaBytes)
		stats.TopUsers = append(stats.TopUsers, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top users: %w", err)
	}
	return &stats, nil
}

// Built-in presets used until an admin saves their own set.
var defaultQuotaPresets = []model.QuotaPreset{
	{Name: "Basic", Value: 1 << 30},
	{Name: "Standard", Value: 5 << 30},
	{Name: "Premium", Value: 10 << 30},
	{Name: "Business", Value: 25 << 30},
}

const quotaPresetsKey = "quota_presets"

// QuotaPresets returns the configured presets, or the built-in set
// when none have been saved.
func (s *StorageService) QuotaPresets(ctx context.Context) ([]model.QuotaPreset, error) {
	var raw json.RawMessage
	err := s.db.QueryRow(ctx,
		"SELECT setting_value FROM system_settings WHERE setting_key = $1", quotaPresetsKey,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultQuotaPresets, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load quota presets: %w", err)
	}

	var stored struct {
		Presets []model.QuotaPreset `json:"presets"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil || len(stored.Presets) == 0 {
		return defaultQuotaPresets, nil
	}
	return stored.Presets, nil
}

// SetQuotaPresets replaces the preset list.
func (s *StorageService) SetQuotaPresets(ctx context.Context, presets []model.QuotaPreset, updatedBy string) error {
	if len(presets) == 0 {
		return Validationf("at least one preset is required")
	}
	for _, p := range presets {
		if p.Name == "" {
			return Validationf("preset name is required")
		}
		if p.Value <= 0 {
			return Validationf("preset %s must have a positive size", p.Name)
		}
	}

	value, err := json.Marshal(map[string]any{"presets": presets})
	if err != nil {
		return fmt.Errorf("marshal quota presets: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO system_settings (id, setting_key, setting_value, updated_by, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value,
		   updated_by = EXCLUDED.updated_by, updated_at = now()`,
		platform.NewID(), quotaPresetsKey, value, updatedBy,
	)
	if err != nil {
		return fmt.Errorf("save quota presets: %w", err)
	}
	return nil
}

func usagePercent(usage, quota int64) float64 {
	if quota <= 0 {
		return 0
	}
	return float64(usage) / float64(quota) * 100
}
