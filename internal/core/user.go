package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/NeonAnubis/afrimail-backend/internal/crypto"
	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// UserService manages end-user accounts. Recovery contacts are stored
// encrypted next to a deterministic hash used for equality lookups;
// with no encryption key configured recovery fields are rejected on
// write and withheld on read.
type UserService struct {
	db            DB
	mc            *mailcow.Client
	encryptionKey string
}

func NewUserService(db DB, mc *mailcow.Client, encryptionKey string) *UserService {
	return &UserService{db: db, mc: mc, encryptionKey: encryptionKey}
}

const userColumns = `id, email, password_hash, first_name, last_name, is_suspended,
	recovery_email_enc, recovery_email_hash, recovery_phone_enc, recovery_phone_hash, created_at, updated_at`

func (s *UserService) scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsSuspended,
		&u.RecoveryEmailEnc, &u.RecoveryEmailHash, &u.RecoveryPhoneEnc, &u.RecoveryPhoneHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.decryptRecovery(&u)
	return &u, nil
}

// decryptRecovery populates the plaintext views. Decryption failures
// leave the views empty; a key rotation must not break user reads.
func (s *UserService) decryptRecovery(u *model.User) {
	if s.encryptionKey == "" {
		return
	}
	if u.RecoveryEmailEnc != nil {
		if plain, err := crypto.Decrypt(*u.RecoveryEmailEnc, s.encryptionKey); err == nil {
			v := string(plain)
			u.RecoveryEmail = &v
		}
	}
	if u.RecoveryPhoneEnc != nil {
		if plain, err := crypto.Decrypt(*u.RecoveryPhoneEnc, s.encryptionKey); err == nil {
			v := string(plain)
			u.RecoveryPhone = &v
		}
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", email, err)
	}
	return u, nil
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Suspended *bool
	Search    string
}

func (s *UserService) List(ctx context.Context, filter UserFilter, limit int, cursor string) ([]model.User, bool, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var conds []string
	args := []any{}
	argIdx := 1

	if filter.Suspended != nil {
		conds = append(conds, fmt.Sprintf("is_suspended = $%d", argIdx))
		args = append(args, *filter.Suspended)
		argIdx++
	}
	if filter.Search != "" {
		conds = append(conds, fmt.Sprintf("(email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	if cursor != "" {
		conds = append(conds, fmt.Sprintf("id > $%d", argIdx))
		args = append(args, cursor)
		argIdx++
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsSuspended,
			&u.RecoveryEmailEnc, &u.RecoveryEmailHash, &u.RecoveryPhoneEnc, &u.RecoveryPhoneHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan user: %w", err)
		}
		s.decryptRecovery(&u)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate users: %w", err)
	}

	hasMore := len(users) > limit
	if hasMore {
		users = users[:limit]
	}
	return users, hasMore, nil
}

// CreateUserParams carries the fields for a new user account.
type CreateUserParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (s *UserService) Create(ctx context.Context, params CreateUserParams) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if !strings.Contains(email, "@") {
		return nil, Validationf("invalid email address %q", params.Email)
	}
	if len(params.Password) < 8 {
		return nil, Validationf("password must be at least 8 characters")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: user %s", ErrConflict, email)
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	u := &model.User{
		ID:           platform.NewID(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, is_suspended, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Suspend blocks the account and tries to deactivate the user's
// mailbox in the control plane. The mailbox call is best effort: a
// control plane failure is logged and the suspension still lands,
// because locking the account out matters more than mirror accuracy.
func (s *UserService) Suspend(ctx context.Context, email string) (*model.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.IsSuspended {
		return u, nil
	}

	if s.mc.IsConfigured() {
		if err := s.mc.SetMailboxActive(ctx, u.Email, false); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user", u.Email).Msg("could not deactivate mailbox during suspension")
		}
	}

	u.IsSuspended = true
	u.UpdatedAt = time.Now()
	_, err = s.db.Exec(ctx, "UPDATE users SET is_suspended = TRUE, updated_at = $1 WHERE id = $2", u.UpdatedAt, u.ID)
	if err != nil {
		return nil, fmt.Errorf("suspend user %s: %w", u.Email, err)
	}
	return u, nil
}

// Unsuspend restores the account and tries to reactivate the mailbox,
// again best effort.
func (s *UserService) Unsuspend(ctx context.Context, email string) (*model.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !u.IsSuspended {
		return u, nil
	}

	if s.mc.IsConfigured() {
		if err := s.mc.SetMailboxActive(ctx, u.Email, true); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user", u.Email).Msg("could not reactivate mailbox during unsuspension")
		}
	}

	u.IsSuspended = false
	u.UpdatedAt = time.Now()
	_, err = s.db.Exec(ctx, "UPDATE users SET is_suspended = FALSE, updated_at = $1 WHERE id = $2", u.UpdatedAt, u.ID)
	if err != nil {
		return nil, fmt.Errorf("unsuspend user %s: %w", u.Email, err)
	}
	return u, nil
}

// UpdateProfile changes the user's display names. Nil keeps the
// stored value.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, firstName, lastName *string) (*model.User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if firstName != nil {
		u.FirstName = strings.TrimSpace(*firstName)
	}
	if lastName != nil {
		u.LastName = strings.TrimSpace(*lastName)
	}

	u.UpdatedAt = time.Now()
	_, err = s.db.Exec(ctx,
		"UPDATE users SET first_name = $1, last_name = $2, updated_at = $3 WHERE id = $4",
		u.FirstName, u.LastName, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile for %s: %w", u.Email, err)
	}
	return u, nil
}

// UpdateRecoveryParams carries new recovery contacts. Nil keeps the
// stored value; an empty string clears it.
type UpdateRecoveryParams struct {
	RecoveryEmail *string
	RecoveryPhone *string
}

// UpdateRecovery re-encrypts the changed recovery contacts and updates
// their lookup hashes in the same statement.
func (s *UserService) UpdateRecovery(ctx context.Context, userID string, params UpdateRecoveryParams) (*model.User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.encryptionKey == "" && (params.RecoveryEmail != nil || params.RecoveryPhone != nil) {
		return nil, Validationf("recovery contacts are not available: no encryption key configured")
	}

	apply := func(value *string, enc, hash **string) error {
		if value == nil {
			return nil
		}
		if *value == "" {
			*enc, *hash = nil, nil
			return nil
		}
		ct, err := crypto.Encrypt([]byte(*value), s.encryptionKey)
		if err != nil {
			return fmt.Errorf("encrypt recovery contact: %w", err)
		}
		h := crypto.LookupHash(strings.ToLower(*value))
		*enc, *hash = &ct, &h
		return nil
	}
	if err := apply(params.RecoveryEmail, &u.RecoveryEmailEnc, &u.RecoveryEmailHash); err != nil {
		return nil, err
	}
	if err := apply(params.RecoveryPhone, &u.RecoveryPhoneEnc, &u.RecoveryPhoneHash); err != nil {
		return nil, err
	}

	u.UpdatedAt = time.Now()
	_, err = s.db.Exec(ctx,
		`UPDATE users SET recovery_email_enc = $1, recovery_email_hash = $2, recovery_phone_enc = $3, recovery_phone_hash = $4, updated_at = $5
		 WHERE id = $6`,
		u.RecoveryEmailEnc, u.RecoveryEmailHash, u.RecoveryPhoneEnc, u.RecoveryPhoneHash, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update recovery contacts for %s: %w", u.Email, err)
	}
	s.decryptRecovery(u)
	return u, nil
}

// FindByRecoveryEmail locates a user by recovery address using the
// deterministic hash; the encrypted column is never scanned.
func (s *UserService) FindByRecoveryEmail(ctx context.Context, recoveryEmail string) (*model.User, error) {
	hash := crypto.LookupHash(strings.ToLower(strings.TrimSpace(recoveryEmail)))
	u, err := s.scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE recovery_email_hash = $1`, hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no user with that recovery address", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user by recovery address: %w", err)
	}
	return u, nil
}

// ChangePassword verifies the current password before setting a new
// one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(current, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	if len(next) < 8 {
		return Validationf("password must be at least 8 characters")
	}

	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", hash, u.ID)
	if err != nil {
		return fmt.Errorf("change password for %s: %w", u.Email, err)
	}
	return nil
}

// Delete removes the account. The user's mailbox, if any, is deleted
// remotely first under the usual blocking rule.
func (s *UserService) Delete(ctx context.Context, email string) error {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	var hasMailbox bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM mailbox_metadata WHERE email = $1)", u.Email).Scan(&hasMailbox); err != nil {
		return fmt.Errorf("check user mailbox: %w", err)
	}
	if hasMailbox && s.mc.IsConfigured() {
		if err := s.mc.DeleteMailbox(ctx, u.Email); err != nil {
			return upstream("delete mailbox "+u.Email, err)
		}
	}
	if hasMailbox {
		if _, err := s.db.Exec(ctx, "DELETE FROM mailbox_metadata WHERE email = $1", u.Email); err != nil {
			return fmt.Errorf("delete mailbox row %s: %w", u.Email, err)
		}
	}

	_, err = s.db.Exec(ctx, "DELETE FROM users WHERE id = $1", u.ID)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", u.Email, err)
	}
	return nil
}
