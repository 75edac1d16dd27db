package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// LoginActivityService records authentication attempts and reports on
// user activity. The trail includes failed attempts, so credential
// probing is visible to admins.
type LoginActivityService struct {
	db DB
}

func NewLoginActivityService(db DB) *LoginActivityService {
	return &LoginActivityService{db: db}
}

// RecordLoginParams describes one authentication attempt.
type RecordLoginParams struct {
	Email         string
	IPAddress     *string
	UserAgent     *string
	Success       bool
	FailureReason *string
}

func (s *LoginActivityService) Record(ctx context.Context, params RecordLoginParams) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO login_activity (id, user_email, login_time, ip_address, user_agent, success, failure_reason, created_at)
		 VALUES ($1, $2, now(), $3, $4, $5, $6, now())`,
		platform.NewID(), strings.ToLower(params.Email), params.IPAddress, params.UserAgent, params.Success, params.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("record login activity: %w", err)
	}
	return nil
}

// List returns recent attempts, newest first.
func (s *LoginActivityService) List(ctx context.Context, limit int, cursor string) ([]model.LoginActivity, bool, error) {
	query := `SELECT id, user_email, login_time, ip_address, user_agent, success, failure_reason, created_at
	          FROM login_activity`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE id < $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list login activity: %w", err)
	}
	defer rows.Close()

	var activities []model.LoginActivity
	for rows.Next() {
		var a model.LoginActivity
		if err := rows.Scan(&a.ID, &a.UserEmail, &a.LoginTime, &a.IPAddress, &a.UserAgent, &a.Success, &a.FailureReason, &a.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scan login activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate login activity: %w", err)
	}

	hasMore := len(activities) > limit
	if hasMore {
		activities = activities[:limit]
	}
	return activities, hasMore, nil
}

// Stats buckets the user base by last-login recency. The buckets
// between 30 and 90 days are disjoint; 90+ is open-ended.
func (s *LoginActivityService) Stats(ctx context.Context) (*model.ActivityStats, error) {
	var stats model.ActivityStats
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		 COUNT(*) FILTER (WHERE last_login >= now() - interval '7 days'),
		 COUNT(*) FILTER (WHERE last_login >= now() - interval '30 days'),
		 COUNT(*) FILTER (WHERE last_login < now() - interval '30 days' AND last_login >= now() - interval '60 days'),
		 COUNT(*) FILTER (WHERE last_login < now() - interval '60 days' AND last_login >= now() - interval '90 days'),
		 COUNT(*) FILTER (WHERE last_login < now() - interval '90 days'),
		 COUNT(*) FILTER (WHERE last_login IS NULL)
		 FROM users`,
	).Scan(&stats.TotalUsers, &stats.ActiveLast7Days, &stats.ActiveLast30Days,
		&stats.Inactive30Days, &stats.Inactive60Days, &stats.Inactive90Days, &stats.NeverLoggedIn)
	if err != nil {
		return nil, fmt.Errorf("activity stats: %w", err)
	}
	return &stats, nil
}

// Inactive lists users whose last login is older than the given number
// of days, never-logged-in users first. Days outside 7..365 are
// rejected.
func (s *LoginActivityService) Inactive(ctx context.Context, days int) ([]model.InactiveUser, error) {
	if days < 7 || days > 365 {
		return nil, Validationf("days must be between 7 and 365")
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, email, first_name, last_name, last_login, is_suspended, created_at
		 FROM users
		 WHERE last_login IS NULL OR last_login < now() - make_interval(days => $1)
		 ORDER BY last_login ASC NULLS FIRST`, days)
	if err != nil {
		return nil, fmt.Errorf("list inactive users: %w", err)
	}
	defer rows.Close()

	var users []model.InactiveUser
	for rows.Next() {
		var u model.InactiveUser
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.LastLogin, &u.IsSuspended, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inactive user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inactive users: %w", err)
	}
	return users, nil
}
