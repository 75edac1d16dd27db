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

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$")

	assert.True(t, VerifyPassword("correct horse battery staple", hash))
	assert.False(t, VerifyPassword("wrong password", hash))
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same input")
	require.NoError(t, err)
	h2, err := HashPassword("same input")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("anything", "not-a-hash"))
	assert.False(t, VerifyPassword("anything", "$argon2id$v=19$garbage"))
}

func adminRow(email, passwordHash string, role model.AdminRole) func(dest ...any) error {
	now := time.Now()
	return func(dest ...any) error {
		*(dest[0].(*string)) = "adm-1"
		*(dest[1].(*string)) = email
		*(dest[2].(*string)) = passwordHash
		*(dest[3].(*model.AdminRole)) = role
		*(dest[4].(*bool)) = true
		*(dest[5].(*time.Time)) = now
		*(dest[6].(*time.Time)) = now
		return nil
	}
}

func TestAuthService_AdminLogin_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewAuthService(db, "test-secret", "afrimail")
	ctx := context.Background()

	hash, err := HashPassword("admin-password-123")
	require.NoError(t, err)
	row := &mockRow{scanFunc: adminRow("admin@afrimail.africa", hash, model.RoleSuperadmin)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	token, admin, err := svc.AdminLogin(ctx, "Admin@Afrimail.Africa", "admin-password-123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperadmin, admin.Role)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@afrimail.africa", claims.Email)
	assert.Equal(t, string(model.RoleSuperadmin), claims.Role)
	assert.True(t, claims.IsAdmin())
}

func TestAuthService_AdminLogin_WrongPassword(t *testing.T) {
	db := &mockDB{}
	svc := NewAuthService(db, "test-secret", "afrimail")
	ctx := context.Background()

	hash, err := HashPassword("admin-password-123")
	require.NoError(t, err)
	row := &mockRow{scanFunc: adminRow("admin@afrimail.africa", hash, model.RoleAdmin)}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, _, err = svc.AdminLogin(ctx, "admin@afrimail.africa", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_UserLogin_SuspendedBlocked(t *testing.T) {
	db := &mockDB{}
	svc := NewAuthService(db, "test-secret", "afrimail")
	ctx := context.Background()

	hash, err := HashPassword("user-password")
	require.NoError(t, err)
	now := time.Now()
	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "usr-1"
		*(dest[1].(*string)) = "alice@afrimail.africa"
		*(dest[2].(*string)) = hash
		*(dest[3].(*string)) = "Alice"
		*(dest[4].(*string)) = "A"
		*(dest[5].(*bool)) = true // suspended
		*(dest[6].(*time.Time)) = now
		*(dest[7].(*time.Time)) = now
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, _, err = svc.UserLogin(ctx, "alice@afrimail.africa", "user-password")
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAuthService_UserLogin_TouchesLastLogin(t *testing.T) {
	db := &mockDB{}
	svc := NewAuthService(db, "test-secret", "afrimail")
	ctx := context.Background()

	hash, err := HashPassword("user-password")
	require.NoError(t, err)
	now := time.Now()
	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "usr-1"
		*(dest[1].(*string)) = "alice@afrimail.africa"
		*(dest[2].(*string)) = hash
		*(dest[3].(*string)) = "Alice"
		*(dest[4].(*string)) = "A"
		*(dest[5].(*bool)) = false
		*(dest[6].(*time.Time)) = now
		*(dest[7].(*time.Time)) = now
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "UPDATE users", "last_login")
	}), mock.Anything).Return(pgconn.CommandTag{}, nil).Once()

	token, user, err := svc.UserLogin(ctx, "alice@afrimail.africa", "user-password")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "usr-1", user.ID)
	db.AssertExpectations(t)
}

func TestAuthService_ValidateToken_WrongSecret(t *testing.T) {
	issuer := NewAuthService(&mockDB{}, "secret-a", "afrimail")
	verifier := NewAuthService(&mockDB{}, "secret-b", "afrimail")

	token, err := issuer.issueToken("usr-1", "alice@afrimail.africa", "")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthService_ValidateToken_UserTokenNotAdmin(t *testing.T) {
	svc := NewAuthService(&mockDB{}, "test-secret", "afrimail")

	token, err := svc.issueToken("usr-1", "alice@afrimail.africa", "")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin())
	assert.Equal(t, "usr-1", claims.Subject)
}

func TestAuthService_CreateAdmin_RoleValidation(t *testing.T) {
	svc := NewAuthService(&mockDB{}, "test-secret", "afrimail")

	_, err := svc.CreateAdmin(context.Background(), CreateAdminParams{
		Email: "x@afrimail.africa", Password: "long-enough-password", Role: "owner",
	})
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAuthService_CreateAdmin_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewAuthService(db, "test-secret", "afrimail")
	ctx := context.Background()

	exists := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = false
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(exists).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil).Once()

	a, err := svc.CreateAdmin(ctx, CreateAdminParams{
		Email: "Support@Afrimail.Africa", Password: "long-enough-password", Role: model.RoleSupport,
	})
	require.NoError(t, err)
	assert.Equal(t, "support@afrimail.africa", a.Email)
	assert.True(t, VerifyPassword("long-enough-password", a.PasswordHash))
	assert.False(t, a.Role.CanManageAdmins())
	db.AssertExpectations(t)
}

func TestAdminRole_Permissions(t *testing.T) {
	assert.True(t, model.RoleSuperadmin.CanManageAdmins())
	assert.False(t, model.RoleAdmin.CanManageAdmins())
	assert.True(t, model.RoleSupport.Valid())
	assert.False(t, model.AdminRole("root").Valid())
}
