package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// txtPrefix marks the verification TXT record value.
const txtPrefix = "afrimail-verify="

// CustomDomainService manages user-owned domains awaiting DNS
// ownership verification. Verified custom domains are promoted to mail
// domains by the admin flow.
type CustomDomainService struct {
	db DB

	// lookupTXT is swappable for tests; net.LookupTXT in production.
	lookupTXT func(name string) ([]string, error)
}

func NewCustomDomainService(db DB) *CustomDomainService {
	return &CustomDomainService{db: db, lookupTXT: net.LookupTXT}
}

func (s *CustomDomainService) List(ctx context.Context, userID string, limit int, cursor string) ([]model.CustomDomain, bool, error) {
	query := `SELECT id, domain, user_id, verification_status, verification_code, created_at, verified_at FROM custom_domains`
	var conds []string
	args := []any{}
	argIdx := 1

	if userID != "" {
		conds = append(conds, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, userID)
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
		return nil, false, fmt.Errorf("list custom domains: %w", err)
	}
	defer rows.Close()

	var domains []model.CustomDomain
	for rows.Next() {
		var d model.CustomDomain
		if err := rows.Scan(&d.ID, &d.Domain, &d.UserID, &d.VerificationStatus, &d.VerificationCode, &d.CreatedAt, &d.VerifiedAt); err != nil {
			return nil, false, fmt.Errorf("scan custom domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate custom domains: %w", err)
	}

	hasMore := len(domains) > limit
	if hasMore {
		domains = domains[:limit]
	}
	return domains, hasMore, nil
}

func (s *CustomDomainService) GetByID(ctx context.Context, id string) (*model.CustomDomain, error) {
	var d model.CustomDomain
	err := s.db.QueryRow(ctx,
		`SELECT id, domain, user_id, verification_status, verification_code, created_at, verified_at
		 FROM custom_domains WHERE id = $1`, id,
	).Scan(&d.ID, &d.Domain, &d.UserID, &d.VerificationStatus, &d.VerificationCode, &d.CreatedAt, &d.VerifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: custom domain %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get custom domain %s: %w", id, err)
	}
	return &d, nil
}

// Register files a domain for verification and hands back the TXT
// record the owner must publish.
func (s *CustomDomainService) Register(ctx context.Context, domain string, userID *string) (*model.CustomDomain, error) {
	name := strings.ToLower(strings.TrimSpace(domain))
	if !domainNameRe.MatchString(name) {
		return nil, Validationf("invalid domain name %q", domain)
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM custom_domains WHERE domain = $1)", name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check custom domain uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: custom domain %s", ErrConflict, name)
	}

	code := platform.NewCode("verify_")
	d := &model.CustomDomain{
		ID:                 platform.NewID(),
		Domain:             name,
		UserID:             userID,
		VerificationStatus: model.VerificationPending,
		VerificationCode:   &code,
		CreatedAt:          time.Now(),
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO custom_domains (id, domain, user_id, verification_status, verification_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.Domain, d.UserID, d.VerificationStatus, d.VerificationCode, d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert custom domain: %w", err)
	}
	return d, nil
}

// TXTRecord renders the expected verification record value.
func (s *CustomDomainService) TXTRecord(code string) string {
	return txtPrefix + code
}

// Verify checks DNS for the verification TXT record and settles the
// domain's status. A missing record marks the attempt failed; the
// owner can retry after publishing.
func (s *CustomDomainService) Verify(ctx context.Context, id string) (*model.CustomDomain, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.VerificationStatus == model.VerificationVerified {
		return d, nil
	}
	if d.VerificationCode == nil {
		return nil, Validationf("custom domain %s has no verification code", d.Domain)
	}

	expected := txtPrefix + *d.VerificationCode
	records, lookupErr := s.lookupTXT(d.Domain)
	found := false
	for _, r := range records {
		if strings.TrimSpace(r) == expected {
			found = true
			break
		}
	}

	status := model.VerificationFailed
	var verifiedAt *time.Time
	if found {
		status = model.VerificationVerified
		now := time.Now()
		verifiedAt = &now
	} else if lookupErr != nil {
		// DNS unreachable is indistinguishable from missing record
		// for status purposes; the owner retries either way.
		status = model.VerificationFailed
	}

	_, err = s.db.Exec(ctx,
		"UPDATE custom_domains SET verification_status = $1, verified_at = $2 WHERE id = $3",
		status, verifiedAt, d.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update custom domain %s: %w", d.Domain, err)
	}
	d.VerificationStatus = status
	d.VerifiedAt = verifiedAt
	return d, nil
}

func (s *CustomDomainService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM custom_domains WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete custom domain %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: custom domain %s", ErrNotFound, id)
	}
	return nil
}
