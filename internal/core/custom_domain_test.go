package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
)

func customDomainRow(id, domain, status string, code *string) func(dest ...any) error {
	now := time.Now()
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = domain
		*(dest[2].(**string)) = nil
		*(dest[3].(*string)) = status
		*(dest[4].(**string)) = code
		*(dest[5].(*time.Time)) = now
		*(dest[6].(**time.Time)) = nil
		return nil
	}
}

func TestCustomDomainService_Register(t *testing.T) {
	db := &mockDB{}
	svc := NewCustomDomainService(db)
	ctx := context.Background()

	exists := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = false
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(exists).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil).Once()

	d, err := svc.Register(ctx, "MyDomain.COM", nil)
	require.NoError(t, err)
	assert.Equal(t, "mydomain.com", d.Domain)
	assert.Equal(t, model.VerificationPending, d.VerificationStatus)
	require.NotNil(t, d.VerificationCode)
	assert.True(t, strings.HasPrefix(*d.VerificationCode, "verify_"))
	db.AssertExpectations(t)
}

func TestCustomDomainService_Verify_RecordPresent(t *testing.T) {
	db := &mockDB{}
	svc := NewCustomDomainService(db)
	code := "verify_abc123"
	svc.lookupTXT = func(name string) ([]string, error) {
		assert.Equal(t, "mydomain.com", name)
		return []string{"v=spf1 -all", "afrimail-verify=" + code}, nil
	}
	ctx := context.Background()

	row := &mockRow{scanFunc: customDomainRow("cd-1", "mydomain.com", model.VerificationPending, &code)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return args[0] == model.VerificationVerified
	})).Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()

	d, err := svc.Verify(ctx, "cd-1")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, d.VerificationStatus)
	assert.NotNil(t, d.VerifiedAt)
	db.AssertExpectations(t)
}

func TestCustomDomainService_Verify_RecordMissing(t *testing.T) {
	db := &mockDB{}
	svc := NewCustomDomainService(db)
	code := "verify_abc123"
	svc.lookupTXT = func(name string) ([]string, error) {
		return []string{"v=spf1 -all"}, nil
	}
	ctx := context.Background()

	row := &mockRow{scanFunc: customDomainRow("cd-1", "mydomain.com", model.VerificationPending, &code)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return args[0] == model.VerificationFailed
	})).Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()

	d, err := svc.Verify(ctx, "cd-1")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationFailed, d.VerificationStatus)
	assert.Nil(t, d.VerifiedAt)
	db.AssertExpectations(t)
}

func TestCustomDomainService_Verify_DNSError(t *testing.T) {
	db := &mockDB{}
	svc := NewCustomDomainService(db)
	code := "verify_abc123"
	svc.lookupTXT = func(name string) ([]string, error) {
		return nil, errors.New("lookup timeout")
	}
	ctx := context.Background()

	row := &mockRow{scanFunc: customDomainRow("cd-1", "mydomain.com", model.VerificationPending, &code)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return args[0] == model.VerificationFailed
	})).Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()

	d, err := svc.Verify(ctx, "cd-1")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationFailed, d.VerificationStatus)
}

func TestCustomDomainService_Verify_AlreadyVerified_NoOp(t *testing.T) {
	db := &mockDB{}
	svc := NewCustomDomainService(db)
	code := "verify_abc123"
	svc.lookupTXT = func(name string) ([]string, error) {
		t.Fatal("DNS should not be queried for a verified domain")
		return nil, nil
	}
	ctx := context.Background()

	row := &mockRow{scanFunc: customDomainRow("cd-1", "mydomain.com", model.VerificationVerified, &code)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row).Once()

	d, err := svc.Verify(ctx, "cd-1")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, d.VerificationStatus)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}
