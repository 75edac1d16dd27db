package core

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// ErrInvalidCredentials is returned for any authentication failure.
// Wrong email and wrong password are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims is the JWT payload for both admin and user sessions. Role is
// empty for end-user tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token belongs to an admin session.
func (c *Claims) IsAdmin() bool {
	return c.Role != ""
}

// AuthService authenticates admins and users and issues session
// tokens.
type AuthService struct {
	db        DB
	jwtSecret []byte
	jwtIssuer string
}

func NewAuthService(db DB, jwtSecret, jwtIssuer string) *AuthService {
	return &AuthService{db: db, jwtSecret: []byte(jwtSecret), jwtIssuer: jwtIssuer}
}

// AdminLogin authenticates an admin by email and password.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (string, *model.AdminUser, error) {
	var a model.AdminUser
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, role, is_active, created_at, updated_at
		 FROM admin_users WHERE email = $1 AND is_active`, strings.ToLower(email),
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !VerifyPassword(password, a.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(a.ID, a.Email, string(a.Role))
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, &a, nil
}

// UserLogin authenticates an end user. Suspended accounts cannot log
// in.
func (s *AuthService) UserLogin(ctx context.Context, email, password string) (string, *model.User, error) {
	var u model.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, first_name, last_name, is_suspended, created_at, updated_at
		 FROM users WHERE email = $1`, strings.ToLower(email),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsSuspended, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}
	if u.IsSuspended {
		return "", nil, Validationf("account is suspended")
	}

	// Best effort: the activity report tolerates a missed touch, a
	// login must not fail over it.
	_, _ = s.db.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", u.ID)

	token, err := s.issueToken(u.ID, u.Email, "")
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, &u, nil
}

func (s *AuthService) issueToken(subject, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateToken parses and verifies a session token.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(s.jwtIssuer))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &claims, nil
}

// CreateAdminParams carries the fields for a new admin account.
type CreateAdminParams struct {
	Email    string
	Password string
	Role     model.AdminRole
}

// CreateAdmin provisions an admin account. Only superadmins may call
// this; the handler enforces that.
func (s *AuthService) CreateAdmin(ctx context.Context, params CreateAdminParams) (*model.AdminUser, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if !params.Role.Valid() {
		return nil, Validationf("unknown admin role %q", params.Role)
	}
	if len(params.Password) < 12 {
		return nil, Validationf("admin password must be at least 12 characters")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM admin_users WHERE email = $1)", email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check admin uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: admin %s", ErrConflict, email)
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	a := &model.AdminUser{
		ID:           platform.NewID(),
		Email:        email,
		PasswordHash: hash,
		Role:         params.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO admin_users (id, email, password_hash, role, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Email, a.PasswordHash, a.Role, a.IsActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert admin: %w", err)
	}
	return a, nil
}

// ListAdmins returns all admin accounts.
func (s *AuthService) ListAdmins(ctx context.Context) ([]model.AdminUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, email, password_hash, role, is_active, created_at, updated_at FROM admin_users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []model.AdminUser
	for rows.Next() {
		var a model.AdminUser
		if err := rows.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admins: %w", err)
	}
	return admins, nil
}

// SetAdminActive enables or disables an admin account.
func (s *AuthService) SetAdminActive(ctx context.Context, id string, active bool) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE admin_users SET is_active = $1, updated_at = now() WHERE id = $2", active, id,
	)
	if err != nil {
		return fmt.Errorf("toggle admin %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: admin %s", ErrNotFound, id)
	}
	return nil
}

// HashPassword produces a PHC-format argon2id hash.
// Format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func HashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, 3, 65536, 4, 32)
	return fmt.Sprintf("$argon2id$v=19$m=65536,t=3,p=4$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword checks a password against a PHC-format argon2id hash.
func VerifyPassword(password, hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	paramParts := strings.Split(parts[3], ",")
	if len(paramParts) != 3 {
		return false
	}
	memory, err := parseParam(paramParts[0], "m=")
	if err != nil {
		return false
	}
	iterations, err := parseParam(paramParts[1], "t=")
	if err != nil {
		return false
	}
	parallelism, err := parseParam(paramParts[2], "p=")
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, uint32(iterations), uint32(memory), uint8(parallelism), uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

func parseParam(s, prefix string) (int, error) {
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("missing prefix %s", prefix)
	}
	return strconv.Atoi(s[len(prefix):])
}
