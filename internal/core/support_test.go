package core

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
)

func ticketRow(id, status string) func(dest ...any) error {
	now := time.Now()
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = "usr-1"
		*(dest[2].(*string)) = "cannot send"
		*(dest[3].(*string)) = "mails bounce"
		*(dest[4].(*string)) = status
		*(dest[5].(**string)) = nil
		*(dest[6].(*time.Time)) = now
		*(dest[7].(*time.Time)) = now
		return nil
	}
}

func TestSupportTicketService_Create(t *testing.T) {
	db := &mockDB{}
	svc := NewSupportTicketService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return args[4] == model.TicketOpen
	})).Return(pgconn.CommandTag{}, nil).Once()

	ticket, err := svc.Create(ctx, "usr-1", "cannot send", "mails bounce")
	require.NoError(t, err)
	assert.Equal(t, model.TicketOpen, ticket.Status)
	db.AssertExpectations(t)
}

func TestSupportTicketService_Create_MissingSubject(t *testing.T) {
	db := &mockDB{}
	svc := NewSupportTicketService(db)

	_, err := svc.Create(context.Background(), "usr-1", "", "body")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestSupportTicketService_Reply_SetsReplyAndStatus(t *testing.T) {
	db := &mockDB{}
	svc := NewSupportTicketService(db)
	ctx := context.Background()

	row := &mockRow{scanFunc: ticketRow("tkt-1", model.TicketOpen)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row).Once()
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "UPDATE support_tickets", "admin_reply")
	}), mock.MatchedBy(func(args []any) bool {
		reply, ok := args[0].(*string)
		return ok && *reply == "fixed your DNS" && args[1] == model.TicketClosed
	})).Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()

	ticket, err := svc.Reply(ctx, "tkt-1", "fixed your DNS", model.TicketClosed)
	require.NoError(t, err)
	assert.Equal(t, model.TicketClosed, ticket.Status)
	require.NotNil(t, ticket.AdminReply)
	assert.Equal(t, "fixed your DNS", *ticket.AdminReply)
	db.AssertExpectations(t)
}

func TestSupportTicketService_Reply_UnknownStatus(t *testing.T) {
	db := &mockDB{}
	svc := NewSupportTicketService(db)

	_, err := svc.Reply(context.Background(), "tkt-1", "done", "archived")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	db.AssertNotCalled(t, "QueryRow", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnnouncementService_Create_StartsUnpublished(t *testing.T) {
	db := &mockDB{}
	svc := NewAnnouncementService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "INSERT INTO announcements", "FALSE")
	}), mock.Anything).Return(pgconn.CommandTag{}, nil).Once()

	a, err := svc.Create(ctx, "Maintenance window", "Saturday 02:00 UTC", nil)
	require.NoError(t, err)
	assert.False(t, a.IsPublished)
	db.AssertExpectations(t)
}

func TestAnnouncementService_List_PublishedFilter(t *testing.T) {
	db := &mockDB{}
	svc := NewAnnouncementService(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "WHERE is_published")
	}), mock.Anything).Return(newEmptyMockRows(), nil).Once()

	items, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, items)
	db.AssertExpectations(t)
}
