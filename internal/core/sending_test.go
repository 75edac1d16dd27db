package core

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
)

// expectEnsureLimit wires the lazy-creation pair: the default-tier
// lookup and the conflict-absorbing insert.
func expectEnsureLimit(db *mockDB, ctx context.Context) {
	tierRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = model.DefaultDailyLimit
		*(dest[1].(*int)) = model.DefaultHourlyLimit
		return nil
	}}
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "FROM sending_tiers")
	}), mock.Anything).Return(tierRow).Once()
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "INSERT INTO sending_limits", "ON CONFLICT")
	}), mock.Anything).Return(pgconn.CommandTag{}, nil).Once()
}

// ---------- CheckAndRecord: admitted ----------

func TestSendingLimit_Admit_LastSlotReachesLimit(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	expectEnsureLimit(db, ctx)

	// 49 of 50 sent; this send takes the counter to exactly the limit
	// and is still admitted.
	admitted := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "lim-1"
		*(dest[1].(*string)) = model.DefaultTierName
		*(dest[2].(*int)) = 50
		*(dest[3].(*int)) = 60
		*(dest[4].(*int)) = 50 // emails_sent_today after increment
		*(dest[5].(*int)) = 12
		*(dest[6].(*bool)) = true
		return nil
	}}
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "UPDATE sending_limits", "RETURNING")
	}), mock.Anything).Return(admitted).Once()
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "INSERT INTO email_send_logs")
	}), mock.MatchedBy(func(args []any) bool {
		return len(args) == 9 && args[5] == model.SendStatusSent
	})).Return(pgconn.CommandTag{}, nil).Once()

	res, err := svc.CheckAndRecord(ctx, SendRequest{UserID: "user-1", RecipientEmail: "to@example.com"})
	require.NoError(t, err)
	assert.True(t, res.Admitted)
	assert.Empty(t, res.ViolationType)
	assert.Equal(t, 50, res.Limit.EmailsSentToday)
	assert.Equal(t, model.SendingStateAtLimit, res.Limit.State())
	db.AssertExpectations(t)
}

// ---------- CheckAndRecord: rejected ----------

func rejectedScan(daily, hourly, sentToday, sentHour int, enabled bool) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = "lim-1"
		*(dest[1].(*string)) = model.DefaultTierName
		*(dest[2].(*int)) = daily
		*(dest[3].(*int)) = hourly
		*(dest[4].(*int)) = sentToday
		*(dest[5].(*int)) = sentHour
		*(dest[6].(*bool)) = enabled
		return nil
	}
}

func expectRejection(db *mockDB, ctx context.Context, classify func(dest ...any) error, wantViolation string) {
	expectEnsureLimit(db, ctx)

	noRow := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "is_sending_enabled", "daily_limit")
	}), mock.Anything).Return(noRow).Once()
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "UPDATE sending_limits", "RETURNING")
	}), mock.Anything).Return(&mockRow{scanFunc: classify}).Once()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "INSERT INTO sending_limit_violations")
	}), mock.MatchedBy(func(args []any) bool {
		return len(args) == 6 && args[2] == wantViolation
	})).Return(pgconn.CommandTag{}, nil).Once()
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "INSERT INTO email_send_logs")
	}), mock.MatchedBy(func(args []any) bool {
		return len(args) == 9 && args[5] == model.SendStatusBlocked
	})).Return(pgconn.CommandTag{}, nil).Once()
}

func TestSendingLimit_Reject_DailyExceeded(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	// Counter already at the daily limit; one more is rejected and the
	// counter does not move.
	expectRejection(db, ctx, rejectedScan(50, 60, 50, 10, true), model.ViolationDailyExceeded)

	res, err := svc.CheckAndRecord(ctx, SendRequest{UserID: "user-1", RecipientEmail: "to@example.com"})
	require.NoError(t, err)
	assert.False(t, res.Admitted)
	assert.Equal(t, model.ViolationDailyExceeded, res.ViolationType)
	assert.Equal(t, 50, res.Limit.EmailsSentToday)
	db.AssertExpectations(t)
}

func TestSendingLimit_Reject_HourlyExceeded(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	// Daily budget remains but the hourly window is exhausted.
	expectRejection(db, ctx, rejectedScan(50, 10, 20, 10, true), model.ViolationHourlyExceeded)

	res, err := svc.CheckAndRecord(ctx, SendRequest{UserID: "user-1", RecipientEmail: "to@example.com"})
	require.NoError(t, err)
	assert.False(t, res.Admitted)
	assert.Equal(t, model.ViolationHourlyExceeded, res.ViolationType)
	db.AssertExpectations(t)
}

func TestSendingLimit_Reject_SendingDisabled(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	// Disabled wins over counter state even with budget to spare.
	expectRejection(db, ctx, rejectedScan(50, 10, 0, 0, false), model.ViolationSendingDisabled)

	res, err := svc.CheckAndRecord(ctx, SendRequest{UserID: "user-1", RecipientEmail: "to@example.com"})
	require.NoError(t, err)
	assert.False(t, res.Admitted)
	assert.Equal(t, model.ViolationSendingDisabled, res.ViolationType)
	assert.Equal(t, model.SendingStateSuspended, res.Limit.State())
	db.AssertExpectations(t)
}

func TestSendingLimit_Reject_BulkSendOverflowsDaily(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	// 45 of 50 sent; a 10-recipient send would overflow and is
	// rejected whole, counters unchanged.
	expectRejection(db, ctx, rejectedScan(50, 60, 45, 5, true), model.ViolationDailyExceeded)

	res, err := svc.CheckAndRecord(ctx, SendRequest{UserID: "user-1", RecipientEmail: "list@example.com", RecipientCount: 10})
	require.NoError(t, err)
	assert.False(t, res.Admitted)
	assert.Equal(t, 45, res.Limit.EmailsSentToday)
	db.AssertExpectations(t)
}

// ---------- Window rollover presentation ----------

func TestSettleWindows_YesterdayCounterReadsZero(t *testing.T) {
	now := time.Now()
	l := &model.SendingLimit{
		DailyLimit:         50,
		HourlyLimit:        10,
		EmailsSentToday:    50,
		EmailsSentThisHour: 10,
		LastResetDate:      now.AddDate(0, 0, -1),
		LastResetHour:      now.Add(-2 * time.Hour),
		IsSendingEnabled:   true,
	}
	settleWindows(l, now)
	assert.Equal(t, 0, l.EmailsSentToday)
	assert.Equal(t, 0, l.EmailsSentThisHour)
	assert.Equal(t, model.SendingStateActive, l.State())
}

func TestSettleWindows_CurrentWindowsKept(t *testing.T) {
	now := time.Now().Truncate(time.Hour).Add(30 * time.Minute)
	l := &model.SendingLimit{
		DailyLimit:         50,
		HourlyLimit:        10,
		EmailsSentToday:    40,
		EmailsSentThisHour: 3,
		LastResetDate:      now,
		LastResetHour:      now.Add(-10 * time.Minute),
		IsSendingEnabled:   true,
	}
	settleWindows(l, now)
	assert.Equal(t, 40, l.EmailsSentToday)
	assert.Equal(t, 3, l.EmailsSentThisHour)
	assert.Equal(t, model.SendingStateNearLimit, l.State())
}

func TestSettleWindows_ComparesInUTC(t *testing.T) {
	// 23:30 UTC on the 10th is already the 11th in a UTC+14 zone. The
	// daily window is still the 10th's as far as the database clock is
	// concerned, so the counter must survive a read from that zone.
	ahead := time.FixedZone("ahead", 14*3600)
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	l := &model.SendingLimit{
		DailyLimit:         50,
		HourlyLimit:        10,
		EmailsSentToday:    12,
		EmailsSentThisHour: 2,
		LastResetDate:      time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		LastResetHour:      now.Add(-10 * time.Minute),
		IsSendingEnabled:   true,
	}
	settleWindows(l, now.In(ahead))
	assert.Equal(t, 12, l.EmailsSentToday)
	assert.Equal(t, 2, l.EmailsSentThisHour)

	// And the counter from the UTC 9th is stale even when the local
	// zone lags behind.
	behind := time.FixedZone("behind", -11*3600)
	l.EmailsSentToday = 30
	l.LastResetDate = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	settleWindows(l, now.In(behind))
	assert.Equal(t, 0, l.EmailsSentToday)
}

// ---------- Admin operations ----------

func TestSendingLimit_Suspend(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	expectEnsureLimit(db, ctx)
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "is_sending_enabled = FALSE")
	}), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()

	err := svc.Suspend(ctx, "user-1", "spam reports")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestSendingLimit_Resume_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil).Once()

	err := svc.Resume(ctx, "user-x")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSendingLimit_ResolveViolation_OneWay(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	// Already-resolved rows match nothing.
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "NOT is_resolved")
	}), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil).Once()

	err := svc.ResolveViolation(ctx, "vio-1", "handled", "admin@afrimail.africa")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	db.AssertExpectations(t)
}

func TestSendingLimit_UpdateLimits_TierAppliesDefaults(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	expectEnsureLimit(db, ctx)

	now := time.Now()
	limitRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "lim-1"
		*(dest[1].(*string)) = "user-1"
		*(dest[2].(*string)) = model.DefaultTierName
		*(dest[3].(*int)) = 50
		*(dest[4].(*int)) = 10
		*(dest[5].(*int)) = 5
		*(dest[6].(*int)) = 1
		*(dest[7].(*time.Time)) = now
		*(dest[8].(*time.Time)) = now
		*(dest[9].(*bool)) = true
		*(dest[10].(**string)) = nil
		*(dest[11].(*time.Time)) = now
		*(dest[12].(*time.Time)) = now
		return nil
	}}
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "FROM sending_limits WHERE user_id")
	}), mock.Anything).Return(limitRow).Once()

	tierRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = 500
		*(dest[1].(*int)) = 100
		return nil
	}}
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "FROM sending_tiers", "is_active")
	}), mock.Anything).Return(tierRow).Once()
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "UPDATE sending_limits SET tier_name")
	}), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()

	tier := "pro"
	l, err := svc.UpdateLimits(ctx, "user-1", UpdateLimitsParams{TierName: &tier})
	require.NoError(t, err)
	assert.Equal(t, "pro", l.TierName)
	assert.Equal(t, 500, l.DailyLimit)
	assert.Equal(t, 100, l.HourlyLimit)
	db.AssertExpectations(t)
}

func TestSendingLimit_UpdateLimits_NegativeRejected(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	expectEnsureLimit(db, ctx)

	now := time.Now()
	limitRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "lim-1"
		*(dest[1].(*string)) = "user-1"
		*(dest[2].(*string)) = model.DefaultTierName
		*(dest[3].(*int)) = 50
		*(dest[4].(*int)) = 10
		*(dest[5].(*int)) = 0
		*(dest[6].(*int)) = 0
		*(dest[7].(*time.Time)) = now
		*(dest[8].(*time.Time)) = now
		*(dest[9].(*bool)) = true
		*(dest[10].(**string)) = nil
		*(dest[11].(*time.Time)) = now
		*(dest[12].(*time.Time)) = now
		return nil
	}}
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "FROM sending_limits WHERE user_id")
	}), mock.Anything).Return(limitRow).Once()

	bad := -1
	_, err := svc.UpdateLimits(ctx, "user-1", UpdateLimitsParams{DailyLimit: &bad})
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSendingLimit_Stats(t *testing.T) {
	db := &mockDB{}
	svc := NewSendingLimitService(db)
	ctx := context.Background()

	statsRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int64)) = 1234
		*(dest[1].(*int64)) = 7
		*(dest[2].(*int64)) = 15
		*(dest[3].(*int64)) = 3
		*(dest[4].(*int64)) = 900
		*(dest[5].(*int64)) = 850
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(statsRow)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), stats.TotalSentToday)
	assert.Equal(t, int64(7), stats.UsersAtLimit)
	assert.Equal(t, int64(850), stats.FreeTierUsers)
}

// ---------- UsagePercent ----------

func TestSendingLimit_UsagePercent_ZeroLimit(t *testing.T) {
	l := &model.SendingLimit{DailyLimit: 0, EmailsSentToday: 10}
	assert.Equal(t, 0.0, l.UsagePercent())
}
