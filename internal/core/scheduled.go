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

// ScheduledActionService manages deferred admin tasks. This service
// only files, lists and cancels them; execution belongs to a worker.
type ScheduledActionService struct {
	db DB
}

func NewScheduledActionService(db DB) *ScheduledActionService {
	return &ScheduledActionService{db: db}
}

// Action types the worker understands.
const (
	ActionSuspendUsers   = "suspend_users"
	ActionUnsuspendUsers = "unsuspend_users"
	ActionResetLimits    = "reset_limits"
	ActionSendNotice     = "send_notice"
)

var knownActionTypes = map[string]bool{
	ActionSuspendUsers:   true,
	ActionUnsuspendUsers: true,
	ActionResetLimits:    true,
	ActionSendNotice:     true,
}

// CreateActionParams carries the fields for a new scheduled action.
type CreateActionParams struct {
	ActionType   string
	TargetType   string
	TargetIDs    []string
	ScheduledFor time.Time
	ActionData   json.RawMessage
	CreatedBy    *string
}

func (s *ScheduledActionService) Create(ctx context.Context, params CreateActionParams) (*model.ScheduledAction, error) {
	if !knownActionTypes[params.ActionType] {
		return nil, Validationf("unknown action type %q", params.ActionType)
	}
	if len(params.TargetIDs) == 0 {
		return nil, Validationf("scheduled action requires at least one target")
	}
	if params.ScheduledFor.Before(time.Now()) {
		return nil, Validationf("scheduled time must be in the future")
	}

	now := time.Now()
	a := &model.ScheduledAction{
		ID:           platform.NewID(),
		ActionType:   params.ActionType,
		TargetType:   params.TargetType,
		TargetIDs:    params.TargetIDs,
		ScheduledFor: params.ScheduledFor,
		Status:       model.ActionPending,
		ActionData:   params.ActionData,
		CreatedBy:    params.CreatedBy,
		CreatedAt:    now,
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO scheduled_actions (id, action_type, target_type, target_ids, scheduled_for, status, action_data, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.ActionType, a.TargetType, a.TargetIDs, a.ScheduledFor, a.Status, a.ActionData, a.CreatedBy, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scheduled action: %w", err)
	}
	return a, nil
}

func (s *ScheduledActionService) GetByID(ctx context.Context, id string) (*model.ScheduledAction, error) {
	var a model.ScheduledAction
	err := s.db.QueryRow(ctx,
		`SELECT id, action_type, target_type, target_ids, scheduled_for, status, action_data, created_by, executed_at, created_at
		 FROM scheduled_actions WHERE id = $1`, id,
	).Scan(&a.ID, &a.ActionType, &a.TargetType, &a.TargetIDs, &a.ScheduledFor, &a.Status, &a.ActionData, &a.CreatedBy, &a.ExecutedAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: scheduled action %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled action %s: %w", id, err)
	}
	return &a, nil
}

func (s *ScheduledActionService) List(ctx context.Context, status string, limit int, cursor string) ([]model.ScheduledAction, bool, error) {
	query := `SELECT id, action_type, target_type, target_ids, scheduled_for, status, action_data, created_by, executed_at, created_at
	          FROM scheduled_actions`
	var conds []string
	args := []any{}
	argIdx := 1

	if status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, status)
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
		return nil, false, fmt.Errorf("list scheduled actions: %w", err)
	}
	defer rows.Close()

	var actions []model.ScheduledAction
	for rows.Next() {
		var a model.ScheduledAction
		if err := rows.Scan(&a.ID, &a.ActionType, &a.TargetType, &a.TargetIDs, &a.ScheduledFor, &a.Status, &a.ActionData, &a.CreatedBy, &a.ExecutedAt, &a.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scan scheduled action: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate scheduled actions: %w", err)
	}

	hasMore := len(actions) > limit
	if hasMore {
		actions = actions[:limit]
	}
	return actions, hasMore, nil
}

// Cancel aborts a pending action. Executed or already-cancelled
// actions cannot be cancelled.
func (s *ScheduledActionService) Cancel(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE scheduled_actions SET status = $1 WHERE id = $2 AND status = $3",
		model.ActionCancelled, id, model.ActionPending,
	)
	if err != nil {
		return fmt.Errorf("cancel scheduled action %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		a, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return Validationf("scheduled action %s is %s and cannot be cancelled", id, a.Status)
	}
	return nil
}

// Delete removes a non-pending action from the history.
func (s *ScheduledActionService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM scheduled_actions WHERE id = $1 AND status <> $2", id, model.ActionPending,
	)
	if err != nil {
		return fmt.Errorf("delete scheduled action %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		a, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return Validationf("scheduled action %s is %s; cancel it before deleting", id, a.Status)
	}
	return nil
}

// MarkExecuted records a worker outcome for a pending action.
func (s *ScheduledActionService) MarkExecuted(ctx context.Context, id string, failed bool) error {
	status := model.ActionCompleted
	if failed {
		status = model.ActionFailed
	}
	tag, err := s.db.Exec(ctx,
		"UPDATE scheduled_actions SET status = $1, executed_at = now() WHERE id = $2 AND status = $3",
		status, id, model.ActionPending,
	)
	if err != nil {
		return fmt.Errorf("mark scheduled action %s executed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pending scheduled action %s", ErrNotFound, id)
	}
	return nil
}
