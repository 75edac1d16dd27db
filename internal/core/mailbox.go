package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// MailboxService mirrors mailboxes between the local metadata table and
// the mail control plane. The control plane owns the mailbox itself
// (credentials, storage); the local row caches quota and activation
// state for listings and dashboards.
type MailboxService struct {
	db DB
	mc *mailcow.Client
}

func NewMailboxService(db DB, mc *mailcow.Client) *MailboxService {
	return &MailboxService{db: db, mc: mc}
}

// CreateMailboxParams carries the fields accepted on mailbox creation.
type CreateMailboxParams struct {
	LocalPart  string
	Domain     string
	Password   string
	Name       string
	QuotaBytes int64
	UserID     *string
}

func (s *MailboxService) List(ctx context.Context, limit int, cursor string) ([]model.MailboxMetadata, bool, error) {
	query := `SELECT id, email, user_id, quota_bytes, usage_bytes, is_active, last_synced, created_at, updated_at FROM mailbox_metadata`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list mailboxes: %w", err)
	}
	defer rows.Close()

	var boxes []model.MailboxMetadata
	for rows.Next() {
		var m model.MailboxMetadata
		if err := rows.Scan(&m.ID, &m.Email, &m.UserID, &m.QuotaBytes, &m.UsageBytes, &m.IsActive, &m.LastSynced, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan mailbox: %w", err)
		}
		boxes = append(boxes, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate mailboxes: %w", err)
	}

	hasMore := len(boxes) > limit
	if hasMore {
		boxes = boxes[:limit]
	}
	return boxes, hasMore, nil
}

func (s *MailboxService) GetByEmail(ctx context.Context, email string) (*model.MailboxMetadata, error) {
	var m model.MailboxMetadata
	err := s.db.QueryRow(ctx,
		`SELECT id, email, user_id, quota_bytes, usage_bytes, is_active, last_synced, created_at, updated_at
		 FROM mailbox_metadata WHERE email = $1`, strings.ToLower(email),
	).Scan(&m.ID, &m.Email, &m.UserID, &m.QuotaBytes, &m.UsageBytes, &m.IsActive, &m.LastSynced, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: mailbox %s", ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("get mailbox %s: %w", email, err)
	}
	return &m, nil
}

// Create provisions the mailbox in the control plane and mirrors it
// locally. A remote rejection aborts the create with no local row.
func (s *MailboxService) Create(ctx context.Context, params CreateMailboxParams) (*model.MailboxMetadata, error) {
	local := strings.ToLower(strings.TrimSpace(params.LocalPart))
	domain := strings.ToLower(strings.TrimSpace(params.Domain))
	if local == "" || domain == "" {
		return nil, Validationf("mailbox address requires a local part and a domain")
	}
	email := local + "@" + domain

	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM mailbox_metadata WHERE email = $1)", email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check mailbox uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: mailbox %s", ErrConflict, email)
	}

	if s.mc.IsConfigured() {
		err := s.mc.CreateMailbox(ctx, mailcow.CreateMailboxParams{
			LocalPart:  local,
			Domain:     domain,
			Password:   params.Password,
			Name:       params.Name,
			QuotaBytes: params.QuotaBytes,
			Active:     true,
		})
		if err != nil {
			return nil, upstream("create mailbox "+email, err)
		}
	}

	now := time.Now()
	m := &model.MailboxMetadata{
		ID:         platform.NewID(),
		Email:      email,
		UserID:     params.UserID,
		QuotaBytes: params.QuotaBytes,
		IsActive:   true,
		LastSynced: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO mailbox_metadata (id, email, user_id, quota_bytes, usage_bytes, is_active, last_synced, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8)`,
		m.ID, m.Email, m.UserID, m.QuotaBytes, m.IsActive, m.LastSynced, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert mailbox: %w", err)
	}
	return m, nil
}

// UpdateQuota patches the remote quota first, then the local cache.
func (s *MailboxService) UpdateQuota(ctx context.Context, email string, quotaBytes int64) (*model.MailboxMetadata, error) {
	m, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if quotaBytes < 0 {
		return nil, Validationf("quota must not be negative")
	}

	if s.mc.IsConfigured() {
		if err := s.mc.SetMailboxQuota(ctx, m.Email, quotaBytes); err != nil {
			return nil, upstream("update quota for "+m.Email, err)
		}
	}

	m.QuotaBytes = quotaBytes
	m.UpdatedAt = time.Now()
	_, err = s.db.Exec(ctx,
		"UPDATE mailbox_metadata SET quota_bytes = $1, updated_at = $2 WHERE id = $3",
		m.QuotaBytes, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update mailbox quota %s: %w", m.Email, err)
	}
	return m, nil
}

// SetPassword resets the mailbox credential in the control plane. There
// is no local state to mirror; an unconfigured control plane makes this
// a validation failure because nothing would change anywhere.
func (s *MailboxService) SetPassword(ctx context.Context, email, password string) error {
	m, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if len(password) < 8 {
		return Validationf("password must be at least 8 characters")
	}
	if !s.mc.IsConfigured() {
		return Validationf("mail control plane is not configured")
	}
	if err := s.mc.SetMailboxPassword(ctx, m.Email, password); err != nil {
		return upstream("set password for "+m.Email, err)
	}
	return nil
}

// SetActive toggles the mailbox remotely first, then locally.
func (s *MailboxService) SetActive(ctx context.Context, email string, active bool) (*model.MailboxMetadata, error) {
	m, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.mc.IsConfigured() {
		if err := s.mc.SetMailboxActive(ctx, m.Email, active); err != nil {
			return nil, upstream("toggle mailbox "+m.Email, err)
		}
	}

	m.IsActive = active
	m.UpdatedAt = time.Now()
	_, err = s.db.Exec(ctx,
		"UPDATE mailbox_metadata SET is_active = $1, updated_at = $2 WHERE id = $3",
		m.IsActive, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle mailbox %s: %w", m.Email, err)
	}
	return m, nil
}

// Delete removes the mailbox remotely and locally. A remote failure
// blocks the local delete; dropping the mirror while the control plane
// still hosts the mailbox would orphan it.
func (s *MailboxService) Delete(ctx context.Context, email string) error {
	m, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if s.mc.IsConfigured() {
		if err := s.mc.DeleteMailbox(ctx, m.Email); err != nil {
			return upstream("delete mailbox "+m.Email, err)
		}
	}

	_, err = s.db.Exec(ctx, "DELETE FROM mailbox_metadata WHERE id = $1", m.ID)
	if err != nil {
		return fmt.Errorf("delete mailbox %s: %w", m.Email, err)
	}
	return nil
}

// MailboxSyncResult reports a one-mailbox pull from the control plane.
type MailboxSyncResult struct {
	Email  string               `json:"email"`
	Found  bool                 `json:"found"`
	Remote *mailcow.MailboxInfo `json:"remote,omitempty"`
}

// Sync pulls the remote record and overwrites the local quota, usage
// and activation state with it. Absent remotely is reported, not
// deleted.
func (s *MailboxService) Sync(ctx context.Context, email string) (*MailboxSyncResult, error) {
	m, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !s.mc.IsConfigured() {
		return nil, Validationf("mail control plane is not configured")
	}

	info, err := s.mc.GetMailbox(ctx, m.Email)
	if err != nil {
		return nil, upstream("sync mailbox "+m.Email, err)
	}
	if info == nil {
		return &MailboxSyncResult{Email: m.Email, Found: false}, nil
	}

	_, err = s.db.Exec(ctx,
		`UPDATE mailbox_metadata SET quota_bytes = $1, usage_bytes = $2, is_active = $3, last_synced = now(), updated_at = now()
		 WHERE id = $4`,
		int64(info.Quota), int64(info.QuotaUsed), bool(info.Active), m.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("apply mailbox sync %s: %w", m.Email, err)
	}
	return &MailboxSyncResult{Email: m.Email, Found: true, Remote: info}, nil
}

// SyncAllResult summarizes a bulk pull of one domain's mailboxes.
type SyncAllResult struct {
	Domain  string `json:"domain"`
	Synced  int    `json:"synced"`
	Created int    `json:"created"`
}

// SyncDomain pulls every mailbox of a domain and upserts the local
// mirror. Mailboxes that exist remotely but not locally are adopted.
func (s *MailboxService) SyncDomain(ctx context.Context, domain string) (*SyncAllResult, error) {
	if !s.mc.IsConfigured() {
		return nil, Validationf("mail control plane is not configured")
	}

	infos, err := s.mc.ListMailboxes(ctx, strings.ToLower(domain))
	if err != nil {
		return nil, upstream("sync mailboxes for "+domain, err)
	}

	res := &SyncAllResult{Domain: strings.ToLower(domain)}
	for _, info := range infos {
		email := info.Email()
		tag, err := s.db.Exec(ctx,
			`UPDATE mailbox_metadata SET quota_bytes = $1, usage_bytes = $2, is_active = $3, last_synced = now(), updated_at = now()
			 WHERE email = $4`,
			int64(info.Quota), int64(info.QuotaUsed), bool(info.Active), email,
		)
		if err != nil {
			return nil, fmt.Errorf("apply mailbox sync %s: %w", email, err)
		}
		if tag.RowsAffected() > 0 {
			res.Synced++
			continue
		}
		_, err = s.db.Exec(ctx,
			`INSERT INTO mailbox_metadata (id, email, quota_bytes, usage_bytes, is_active, last_synced, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, now(), now(), now())`,
			platform.NewID(), email, int64(info.Quota), int64(info.QuotaUsed), bool(info.Active),
		)
		if err != nil {
			return nil, fmt.Errorf("adopt mailbox %s: %w", email, err)
		}
		res.Created++
	}
	return res, nil
}
