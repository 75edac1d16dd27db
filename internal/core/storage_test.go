package core

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
)

func TestStorageService_Overview_ComputesPercent(t *testing.T) {
	db := &mockDB{}
	svc := NewStorageService(db)
	ctx := context.Background()

	now := time.Now()
	rows := newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "heavy@afrimail.africa"
			*(dest[1].(*int64)) = 1000
			*(dest[2].(*int64)) = 900
			*(dest[3].(*time.Time)) = now
			return nil
		},
		func(dest ...any) error {
			*(dest[0].(*string)) = "unlimited@afrimail.africa"
			*(dest[1].(*int64)) = 0
			*(dest[2].(*int64)) = 500
			*(dest[3].(*time.Time)) = now
			return nil
		},
	)
	db.On("Query", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "mailbox_metadata", "ORDER BY usage_bytes DESC")
	}), mock.Anything).Return(rows, nil).Once()

	usages, err := svc.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, usages, 2)
	assert.InDelta(t, 90.0, usages[0].UsagePercent, 0.01)
	// A zero quota reads as 0%, not a divide-by-zero.
	assert.Equal(t, 0.0, usages[1].UsagePercent)
	db.AssertExpectations(t)
}

func TestStorageService_QuotaPresets_DefaultsWhenUnset(t *testing.T) {
	db := &mockDB{}
	svc := NewStorageService(db)
	ctx := context.Background()

	missing := &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(missing).Once()

	presets, err := svc.QuotaPresets(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 4)
	assert.Equal(t, model.QuotaPreset{Name: "Basic", Value: 1 << 30}, presets[0])
}

func TestStorageService_QuotaPresets_ReadsStoredSetting(t *testing.T) {
	db := &mockDB{}
	svc := NewStorageService(db)
	ctx := context.Background()

	stored := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*json.RawMessage)) = json.RawMessage(`{"presets": [{"name": "Tiny", "value": 104857600}]}`)
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(stored).Once()

	presets, err := svc.QuotaPresets(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 1)
	assert.Equal(t, "Tiny", presets[0].Name)
}

func TestStorageService_SetQuotaPresets_RejectsNonPositive(t *testing.T) {
	svc := NewStorageService(&mockDB{})

	err := svc.SetQuotaPresets(context.Background(), []model.QuotaPreset{{Name: "Broken", Value: 0}}, "admin@afrimail.africa")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestStorageService_SetQuotaPresets_Upserts(t *testing.T) {
	db := &mockDB{}
	svc := NewStorageService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "system_settings", "ON CONFLICT (setting_key) DO UPDATE")
	}), mock.Anything).Return(pgconn.CommandTag{}, nil).Once()

	err := svc.SetQuotaPresets(ctx, []model.QuotaPreset{{Name: "Tiny", Value: 100 << 20}}, "admin@afrimail.africa")
	require.NoError(t, err)
	db.AssertExpectations(t)
}
