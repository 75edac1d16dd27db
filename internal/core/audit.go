package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// AuditService writes and reads the append-only admin action trail.
type AuditService struct {
	db DB
}

func NewAuditService(db DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends one audit entry. Details may be any JSON-marshalable
// value; a nil value stores NULL.
func (s *AuditService) Record(ctx context.Context, actionType, adminEmail string, targetUserEmail *string, details any, ip *string) error {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		raw = b
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (id, action_type, admin_email, target_user_email, details, ip_address, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		platform.NewID(), actionType, adminEmail, targetUserEmail, raw, ip,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// AuditFilter narrows an audit listing. Zero values match everything.
type AuditFilter struct {
	ActionType string
	AdminEmail string
	Target     string
}

func (s *AuditService) List(ctx context.Context, filter AuditFilter, limit int, cursor string) ([]model.AuditLog, bool, error) {
	query := `SELECT id, action_type, admin_email, target_user_email, details, ip_address, timestamp FROM audit_logs`
	var conds []string
	args := []any{}
	argIdx := 1

	if filter.ActionType != "" {
		conds = append(conds, fmt.Sprintf("action_type = $%d", argIdx))
		args = append(args, filter.ActionType)
		argIdx++
	}
	if filter.AdminEmail != "" {
		conds = append(conds, fmt.Sprintf("admin_email = $%d", argIdx))
		args = append(args, filter.AdminEmail)
		argIdx++
	}
	if filter.Target != "" {
		conds = append(conds, fmt.Sprintf("target_user_email = $%d", argIdx))
		args = append(args, filter.Target)
		argIdx++
	}
	if cursor != "" {
		conds = append(conds, fmt.Sprintf("id < $%d", argIdx))
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

	query += ` ORDER BY id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []model.AuditLog
	for rows.Next() {
		var l model.AuditLog
		if err := rows.Scan(&l.ID, &l.ActionType, &l.AdminEmail, &l.TargetUserEmail, &l.Details, &l.IPAddress, &l.Timestamp); err != nil {
			return nil, false, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate audit logs: %w", err)
	}

	hasMore := len(logs) > limit
	if hasMore {
		logs = logs[:limit]
	}
	return logs, hasMore, nil
}
