package core

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserGroupService_Create_DefaultsColor(t *testing.T) {
	db := &mockDB{}
	svc := NewUserGroupService(db)
	ctx := context.Background()

	exists := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = false
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(exists).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil).Once()

	g, err := svc.Create(ctx, CreateGroupParams{Name: " Marketing "})
	require.NoError(t, err)
	assert.Equal(t, "Marketing", g.Name)
	assert.Equal(t, "blue", g.Color)
	db.AssertExpectations(t)
}

func TestUserGroupService_Create_DuplicateName(t *testing.T) {
	db := &mockDB{}
	svc := NewUserGroupService(db)
	ctx := context.Background()

	exists := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = true
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(exists).Once()

	_, err := svc.Create(ctx, CreateGroupParams{Name: "Marketing"})
	assert.ErrorIs(t, err, ErrConflict)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserGroupService_Create_EmptyNameRejected(t *testing.T) {
	svc := NewUserGroupService(&mockDB{})

	_, err := svc.Create(context.Background(), CreateGroupParams{Name: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUserGroupService_AddMembers_SkipsUnknownAndExisting(t *testing.T) {
	db := &mockDB{}
	svc := NewUserGroupService(db)
	ctx := context.Background()

	groupExists := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = true
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(groupExists).Once()

	// Three candidates: one inserted, one unknown user, one already a
	// member. Only the first counts.
	insert := mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "user_group_members", "ON CONFLICT", "DO NOTHING")
	})
	db.On("Exec", ctx, insert, mock.MatchedBy(func(args []any) bool { return args[3] == "usr_1" })).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()
	db.On("Exec", ctx, insert, mock.MatchedBy(func(args []any) bool { return args[3] == "usr_gone" })).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil).Once()
	db.On("Exec", ctx, insert, mock.MatchedBy(func(args []any) bool { return args[3] == "usr_2" })).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil).Once()

	added, err := svc.AddMembers(ctx, "grp_1", []string{"usr_1", "usr_gone", "usr_2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	db.AssertExpectations(t)
}

func TestUserGroupService_AddMembers_UnknownGroup(t *testing.T) {
	db := &mockDB{}
	svc := NewUserGroupService(db)
	ctx := context.Background()

	groupExists := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = false
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(groupExists).Once()

	_, err := svc.AddMembers(ctx, "grp_gone", []string{"usr_1"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserGroupService_RemoveMember_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewUserGroupService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("DELETE 0"), nil).Once()

	err := svc.RemoveMember(ctx, "grp_1", "usr_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserGroupService_List_CarriesMemberCounts(t *testing.T) {
	db := &mockDB{}
	svc := NewUserGroupService(db)
	ctx := context.Background()

	now := time.Now()
	rows := newMockRows(func(dest ...any) error {
		*(dest[0].(*string)) = "grp_1"
		*(dest[1].(*string)) = "Marketing"
		*(dest[2].(**string)) = nil
		*(dest[3].(*string)) = "green"
		*(dest[4].(*int)) = 7
		*(dest[5].(*time.Time)) = now
		*(dest[6].(*time.Time)) = now
		return nil
	})
	db.On("Query", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "user_groups", "LEFT JOIN", "COUNT")
	}), mock.Anything).Return(rows, nil).Once()

	groups, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 7, groups[0].MemberCount)
	db.AssertExpectations(t)
}
