package core

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoginActivityService_Record_NormalizesEmail(t *testing.T) {
	db := &mockDB{}
	svc := NewLoginActivityService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "login_activity", "failure_reason")
	}), mock.MatchedBy(func(args []any) bool {
		return args[1] == "alice@afrimail.africa" && args[4] == false
	})).Return(pgconn.CommandTag{}, nil).Once()

	reason := "invalid credentials"
	err := svc.Record(ctx, RecordLoginParams{
		Email:         "Alice@Afrimail.Africa",
		Success:       false,
		FailureReason: &reason,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestLoginActivityService_Stats_ScansBuckets(t *testing.T) {
	db := &mockDB{}
	svc := NewLoginActivityService(db)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		vals := []int64{100, 40, 70, 10, 5, 3, 12}
		for i, v := range vals {
			*(dest[i].(*int64)) = v
		}
		return nil
	}}
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "FROM users", "last_login")
	}), mock.Anything).Return(row).Once()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.TotalUsers)
	assert.Equal(t, int64(40), stats.ActiveLast7Days)
	assert.Equal(t, int64(12), stats.NeverLoggedIn)
	db.AssertExpectations(t)
}

func TestLoginActivityService_Inactive_RangeRejected(t *testing.T) {
	svc := NewLoginActivityService(&mockDB{})

	_, err := svc.Inactive(context.Background(), 3)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Inactive(context.Background(), 400)
	require.ErrorAs(t, err, &verr)
}

func TestLoginActivityService_List_PaginationWindow(t *testing.T) {
	db := &mockDB{}
	svc := NewLoginActivityService(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "login_activity", "ORDER BY id DESC")
	}), mock.MatchedBy(func(args []any) bool {
		// Cursor plus limit+1 to detect the next page.
		return args[0] == "act_50" && args[1] == 26
	})).Return(newEmptyMockRows(), nil).Once()

	_, hasMore, err := svc.List(ctx, 25, "act_50")
	require.NoError(t, err)
	assert.False(t, hasMore)
	db.AssertExpectations(t)
}
