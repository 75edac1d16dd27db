package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// SendingLimitService enforces per-user daily and hourly send budgets.
// Counters live in one row per user and roll over lazily: no scheduled
// reset ever runs, the rollover happens inside the admission statement
// itself. Admission is a single conditional UPDATE so concurrent sends
// against the same user cannot both consume the last slot.
type SendingLimitService struct {
	db DB
}

func NewSendingLimitService(db DB) *SendingLimitService {
	return &SendingLimitService{db: db}
}

// rollover expressions shared by the admission and classification
// statements. A counter resets when its window boundary has passed
// since last_reset_*; otherwise it keeps its value.
const (
	rolledDaily  = `CASE WHEN last_reset_date < CURRENT_DATE THEN 0 ELSE emails_sent_today END`
	rolledHourly = `CASE WHEN date_trunc('hour', last_reset_hour) < date_trunc('hour', now()) THEN 0 ELSE emails_sent_this_hour END`
)

// checkQuery admits the send and advances both counters in one
// statement. It matches no row when the user is disabled or either
// window would overflow, in which case no counter moves.
var checkQuery = fmt.Sprintf(`UPDATE sending_limits SET
	 emails_sent_today = (%s) + $2,
	 emails_sent_this_hour = (%s) + $2,
	 last_reset_date = CURRENT_DATE,
	 last_reset_hour = CASE WHEN date_trunc('hour', last_reset_hour) < date_trunc('hour', now()) THEN now() ELSE last_reset_hour END,
	 updated_at = now()
	 WHERE user_id = $1
	   AND is_sending_enabled
	   AND (%s) + $2 <= daily_limit
	   AND (%s) + $2 <= hourly_limit
	 RETURNING id, tier_name, daily_limit, hourly_limit, emails_sent_today, emails_sent_this_hour, is_sending_enabled`,
	rolledDaily, rolledHourly, rolledDaily, rolledHourly)

// classifyQuery applies the rollover without incrementing and returns
// the settled state, so a rejected send is classified against current
// windows rather than stale counters.
var classifyQuery = fmt.Sprintf(`UPDATE sending_limits SET
	 emails_sent_today = %s,
	 emails_sent_this_hour = %s,
	 last_reset_date = CURRENT_DATE,
	 last_reset_hour = CASE WHEN date_trunc('hour', last_reset_hour) < date_trunc('hour', now()) THEN now() ELSE last_reset_hour END,
	 updated_at = now()
	 WHERE user_id = $1
	 RETURNING id, tier_name, daily_limit, hourly_limit, emails_sent_today, emails_sent_this_hour, is_sending_enabled`,
	rolledDaily, rolledHourly)

// SendRequest describes one send attempt presented for admission.
type SendRequest struct {
	UserID         string
	RecipientEmail string
	RecipientCount int
	Subject        *string
	IPAddress      *string
}

// AdmissionResult is the outcome of an admission check. A rejection is
// an expected outcome, not an error: Admitted is false, ViolationType
// names the exhausted budget, and a violation row plus a blocked send
// log were recorded.
type AdmissionResult struct {
	Admitted      bool                `json:"admitted"`
	ViolationType string              `json:"violation_type,omitempty"`
	Limit         *model.SendingLimit `json:"limit"`
}

// CheckAndRecord runs the admission check for one send attempt and
// writes the send log. Exactly one violation row is recorded per
// rejection.
func (s *SendingLimitService) CheckAndRecord(ctx context.Context, req SendRequest) (*AdmissionResult, error) {
	if req.RecipientCount < 1 {
		req.RecipientCount = 1
	}

	if err := s.ensureLimit(ctx, req.UserID); err != nil {
		return nil, err
	}

	var l model.SendingLimit
	err := s.db.QueryRow(ctx, checkQuery, req.UserID, req.RecipientCount).
		Scan(&l.ID, &l.TierName, &l.DailyLimit, &l.HourlyLimit, &l.EmailsSentToday, &l.EmailsSentThisHour, &l.IsSendingEnabled)
	if err == nil {
		l.UserID = req.UserID
		if err := s.recordSendLog(ctx, req, model.SendStatusSent, nil); err != nil {
			return nil, err
		}
		return &AdmissionResult{Admitted: true, Limit: &l}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("admission check for user %s: %w", req.UserID, err)
	}

	// Rejected. Settle the windows and classify why.
	err = s.db.QueryRow(ctx, classifyQuery, req.UserID).
		Scan(&l.ID, &l.TierName, &l.DailyLimit, &l.HourlyLimit, &l.EmailsSentToday, &l.EmailsSentThisHour, &l.IsSendingEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: sending limit for user %s", ErrNotFound, req.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("classify rejection for user %s: %w", req.UserID, err)
	}
	l.UserID = req.UserID

	var violationType string
	var limitAtTime int
	switch {
	case !l.IsSendingEnabled:
		violationType = model.ViolationSendingDisabled
		limitAtTime = 0
	case l.EmailsSentToday+req.RecipientCount > l.DailyLimit:
		violationType = model.ViolationDailyExceeded
		limitAtTime = l.DailyLimit
	default:
		violationType = model.ViolationHourlyExceeded
		limitAtTime = l.HourlyLimit
	}

	details, _ := json.Marshal(map[string]any{
		"emails_sent_today":     l.EmailsSentToday,
		"emails_sent_this_hour": l.EmailsSentThisHour,
		"daily_limit":           l.DailyLimit,
		"hourly_limit":          l.HourlyLimit,
		"recipient_count":       req.RecipientCount,
	})
	_, err = s.db.Exec(ctx,
		`INSERT INTO sending_limit_violations (id, user_id, violation_type, attempted_count, limit_at_time, details, action_taken, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 'blocked', now())`,
		platform.NewID(), req.UserID, violationType, req.RecipientCount, limitAtTime, details,
	)
	if err != nil {
		return nil, fmt.Errorf("record violation for user %s: %w", req.UserID, err)
	}

	if err := s.recordSendLog(ctx, req, model.SendStatusBlocked, &violationType); err != nil {
		return nil, err
	}
	return &AdmissionResult{Admitted: false, ViolationType: violationType, Limit: &l}, nil
}

func (s *SendingLimitService) recordSendLog(ctx context.Context, req SendRequest, status string, blockedReason *string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO email_send_logs (id, user_id, recipient_email, recipient_count, subject, status, blocked_reason, ip_address, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		platform.NewID(), req.UserID, req.RecipientEmail, req.RecipientCount, req.Subject, status, blockedReason, req.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("record send log for user %s: %w", req.UserID, err)
	}
	return nil
}

// ensureLimit creates the user's limit row on first contact, seeded
// from the default tier. Lost races are absorbed by the conflict
// clause.
func (s *SendingLimitService) ensureLimit(ctx context.Context, userID string) error {
	daily, hourly := model.DefaultDailyLimit, model.DefaultHourlyLimit
	err := s.db.QueryRow(ctx,
		"SELECT daily_limit, hourly_limit FROM sending_tiers WHERE name = $1", model.DefaultTierName,
	).Scan(&daily, &hourly)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("load default tier: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO sending_limits (id, user_id, tier_name, daily_limit, hourly_limit, emails_sent_today, emails_sent_this_hour, last_reset_date, last_reset_hour, is_sending_enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, 0, CURRENT_DATE, now(), TRUE, now(), now())
		 ON CONFLICT (user_id) DO NOTHING`,
		platform.NewID(), userID, model.DefaultTierName, daily, hourly,
	)
	if err != nil {
		return fmt.Errorf("ensure sending limit for user %s: %w", userID, err)
	}
	return nil
}

func (s *SendingLimitService) GetByUserID(ctx context.Context, userID string) (*model.SendingLimit, error) {
	if err := s.ensureLimit(ctx, userID); err != nil {
		return nil, err
	}
	var l model.SendingLimit
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, tier_name, daily_limit, hourly_limit, emails_sent_today, emails_sent_this_hour,
		        last_reset_date, last_reset_hour, is_sending_enabled, custom_limit_reason, created_at, updated_at
		 FROM sending_limits WHERE user_id = $1`, userID,
	).Scan(&l.ID, &l.UserID, &l.TierName, &l.DailyLimit, &l.HourlyLimit, &l.EmailsSentToday, &l.EmailsSentThisHour,
		&l.LastResetDate, &l.LastResetHour, &l.IsSendingEnabled, &l.CustomLimitReason, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: sending limit for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get sending limit for user %s: %w", userID, err)
	}
	settleWindows(&l, time.Now())
	return &l, nil
}

// settleWindows presents expired counters as zero without writing. The
// durable reset happens on the next admission check; reads should not
// show stale counts in the meantime. The durable rollover runs against
// the database clock in UTC, so window boundaries are compared in UTC
// here too, whatever zone the process runs in.
func settleWindows(l *model.SendingLimit, now time.Time) {
	now = now.UTC()
	if l.LastResetDate.In(time.UTC).Format("2006-01-02") != now.Format("2006-01-02") {
		l.EmailsSentToday = 0
	}
	if l.LastResetHour.Truncate(time.Hour).Before(now.Truncate(time.Hour)) {
		l.EmailsSentThisHour = 0
	}
}

// LimitWithUser joins a limit row with the owning user for admin
// listings.
type LimitWithUser struct {
	model.SendingLimit
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	State     string `json:"state"`
}

func (s *SendingLimitService) List(ctx context.Context, limit int, cursor string) ([]LimitWithUser, bool, error) {
	query := `SELECT l.id, l.user_id, l.tier_name, l.daily_limit, l.hourly_limit, l.emails_sent_today, l.emails_sent_this_hour,
	          l.last_reset_date, l.last_reset_hour, l.is_sending_enabled, l.custom_limit_reason, l.created_at, l.updated_at,
	          u.email, u.first_name, u.last_name
	          FROM sending_limits l JOIN users u ON u.id = l.user_id`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE l.id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY l.id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list sending limits: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var limits []LimitWithUser
	for rows.Next() {
		var l LimitWithUser
		if err := rows.Scan(&l.ID, &l.UserID, &l.TierName, &l.DailyLimit, &l.HourlyLimit, &l.EmailsSentToday, &l.EmailsSentThisHour,
			&l.LastResetDate, &l.LastResetHour, &l.IsSendingEnabled, &l.CustomLimitReason, &l.CreatedAt, &l.UpdatedAt,
			&l.Email, &l.FirstName, &l.LastName); err != nil {
			return nil, false, fmt.Errorf("scan sending limit: %w", err)
		}
		settleWindows(&l.SendingLimit, now)
		l.State = l.SendingLimit.State()
		limits = append(limits, l)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate sending limits: %w", err)
	}

	hasMore := len(limits) > limit
	if hasMore {
		limits = limits[:limit]
	}
	return limits, hasMore, nil
}

// UpdateLimitsParams carries an admin override of a user's limits.
type UpdateLimitsParams struct {
	TierName    *string
	DailyLimit  *int
	HourlyLimit *int
	Reason      *string
}

func (s *SendingLimitService) UpdateLimits(ctx context.Context, userID string, params UpdateLimitsParams) (*model.SendingLimit, error) {
	l, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if params.TierName != nil {
		var daily, hourly int
		err := s.db.QueryRow(ctx,
			"SELECT daily_limit, hourly_limit FROM sending_tiers WHERE name = $1 AND is_active", *params.TierName,
		).Scan(&daily, &hourly)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: sending tier %s", ErrNotFound, *params.TierName)
		}
		if err != nil {
			return nil, fmt.Errorf("load tier %s: %w", *params.TierName, err)
		}
		l.TierName = *params.TierName
		l.DailyLimit = daily
		l.HourlyLimit = hourly
	}
	if params.DailyLimit != nil {
		if *params.DailyLimit < 0 {
			return nil, Validationf("daily limit must not be negative")
		}
		l.DailyLimit = *params.DailyLimit
	}
	if params.HourlyLimit != nil {
		if *params.HourlyLimit < 0 {
			return nil, Validationf("hourly limit must not be negative")
		}
		l.HourlyLimit = *params.HourlyLimit
	}
	if params.Reason != nil {
		l.CustomLimitReason = params.Reason
	}
	l.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx,
		`UPDATE sending_limits SET tier_name = $1, daily_limit = $2, hourly_limit = $3, custom_limit_reason = $4, updated_at = $5
		 WHERE user_id = $6`,
		l.TierName, l.DailyLimit, l.HourlyLimit, l.CustomLimitReason, l.UpdatedAt, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update sending limits for user %s: %w", userID, err)
	}
	return l, nil
}

// Suspend turns off sending for a user. Counters are untouched; the
// suspension wins over them until lifted.
func (s *SendingLimitService) Suspend(ctx context.Context, userID, reason string) error {
	if err := s.ensureLimit(ctx, userID); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		"UPDATE sending_limits SET is_sending_enabled = FALSE, custom_limit_reason = $1, updated_at = now() WHERE user_id = $2",
		reason, userID,
	)
	if err != nil {
		return fmt.Errorf("suspend sending for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sending limit for user %s", ErrNotFound, userID)
	}
	return nil
}

func (s *SendingLimitService) Resume(ctx context.Context, userID string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE sending_limits SET is_sending_enabled = TRUE, custom_limit_reason = NULL, updated_at = now() WHERE user_id = $1",
		userID,
	)
	if err != nil {
		return fmt.Errorf("resume sending for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sending limit for user %s", ErrNotFound, userID)
	}
	return nil
}

// ResetCounters zeroes both windows immediately.
func (s *SendingLimitService) ResetCounters(ctx context.Context, userID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sending_limits SET emails_sent_today = 0, emails_sent_this_hour = 0,
		 last_reset_date = CURRENT_DATE, last_reset_hour = now(), updated_at = now() WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("reset counters for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sending limit for user %s", ErrNotFound, userID)
	}
	return nil
}

// Stats aggregates limit usage for the admin dashboard. Window expiry
// is respected: a counter past its boundary does not count as usage.
func (s *SendingLimitService) Stats(ctx context.Context) (*model.SendingStats, error) {
	var stats model.SendingStats
	query := fmt.Sprintf(`SELECT
	 COALESCE(SUM(%s), 0),
	 COUNT(*) FILTER (WHERE is_sending_enabled AND ((%s) >= daily_limit OR (%s) >= hourly_limit)),
	 COUNT(*) FILTER (WHERE is_sending_enabled AND daily_limit > 0 AND (%s) < daily_limit AND (%s) * 100 >= daily_limit * 80),
	 (SELECT COUNT(*) FROM sending_limit_violations WHERE NOT is_resolved),
	 COUNT(*),
	 COUNT(*) FILTER (WHERE tier_name = $1)
	 FROM sending_limits`,
		rolledDaily, rolledDaily, rolledHourly, rolledDaily, rolledDaily)
	err := s.db.QueryRow(ctx, query, model.DefaultTierName).
		Scan(&stats.TotalSentToday, &stats.UsersAtLimit, &stats.UsersNearLimit, &stats.ActiveViolations, &stats.TotalUsers, &stats.FreeTierUsers)
	if err != nil {
		return nil, fmt.Errorf("sending stats: %w", err)
	}
	return &stats, nil
}

// ViolationWithUser joins a violation with the owning user's email.
type ViolationWithUser struct {
	model.SendingLimitViolation
	Email string `json:"email"`
}

func (s *SendingLimitService) ListViolations(ctx context.Context, resolved *bool, limit int, cursor string) ([]ViolationWithUser, bool, error) {
	query := `SELECT v.id, v.user_id, v.violation_type, v.attempted_count, v.limit_at_time, v.details, v.action_taken,
	          v.admin_notes, v.is_resolved, v.resolved_at, v.resolved_by, v.created_at, u.email
	          FROM sending_limit_violations v JOIN users u ON u.id = v.user_id`
	var conds []string
	args := []any{}
	argIdx := 1

	if resolved != nil {
		conds = append(conds, fmt.Sprintf("v.is_resolved = $%d", argIdx))
		args = append(args, *resolved)
		argIdx++
	}
	if cursor != "" {
		conds = append(conds, fmt.Sprintf("v.id < $%d", argIdx))
		args = append(args, cursor)
		argIdx++
	}
	if len(conds) > 0 {
		query += " WHERE " + conds[0]
		for _, c := range conds[1:] {
			query += " AND " + c
		}
	}

	query += ` ORDER BY v.id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	var violations []ViolationWithUser
	for rows.Next() {
		var v ViolationWithUser
		if err := rows.Scan(&v.ID, &v.UserID, &v.ViolationType, &v.AttemptedCount, &v.LimitAtTime, &v.Details, &v.ActionTaken,
			&v.AdminNotes, &v.IsResolved, &v.ResolvedAt, &v.ResolvedBy, &v.CreatedAt, &v.Email); err != nil {
			return nil, false, fmt.Errorf("scan violation: %w", err)
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate violations: %w", err)
	}

	hasMore := len(violations) > limit
	if hasMore {
		violations = violations[:limit]
	}
	return violations, hasMore, nil
}

// ResolveViolation marks a violation handled. Already-resolved rows
// stay as they were; resolution is one-way.
func (s *SendingLimitService) ResolveViolation(ctx context.Context, id, notes, resolvedBy string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE sending_limit_violations SET is_resolved = TRUE, admin_notes = $1, resolved_at = now(), resolved_by = $2
		 WHERE id = $3 AND NOT is_resolved`,
		notes, resolvedBy, id,
	)
	if err != nil {
		return fmt.Errorf("resolve violation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: unresolved violation %s", ErrNotFound, id)
	}
	return nil
}

// SendHistory lists a user's send log newest first.
func (s *SendingLimitService) SendHistory(ctx context.Context, userID string, limit int, cursor string) ([]model.SendLog, bool, error) {
	query := `SELECT id, user_id, recipient_email, recipient_count, subject, status, blocked_reason, ip_address, sent_at
	          FROM email_send_logs WHERE user_id = $1`
	args := []any{userID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id < $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list send history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var logs []model.SendLog
	for rows.Next() {
		var e model.SendLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.RecipientEmail, &e.RecipientCount, &e.Subject, &e.Status, &e.BlockedReason, &e.IPAddress, &e.SentAt); err != nil {
			return nil, false, fmt.Errorf("scan send log: %w", err)
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate send logs: %w", err)
	}

	hasMore := len(logs) > limit
	if hasMore {
		logs = logs[:limit]
	}
	return logs, hasMore, nil
}
