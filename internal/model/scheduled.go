package model

import (
	"encoding/json"
	"time"
)

// ScheduledAction is a deferred administrative task. Rows are created
// pending; an admin may cancel a pending action. Execution is owned by
// a separate worker and marks rows completed or failed.
type ScheduledAction struct {
	ID           string          `json:"id" db:"id"`
	ActionType   string          `json:"action_type" db:"action_type"`
	TargetType   string          `json:"target_type" db:"target_type"`
	TargetIDs    []string        `json:"target_ids" db:"target_ids"`
	ScheduledFor time.Time       `json:"scheduled_for" db:"scheduled_for"`
	Status       string          `json:"status" db:"status"`
	ActionData   json.RawMessage `json:"action_data,omitempty" db:"action_data"`
	CreatedBy    *string         `json:"created_by,omitempty" db:"created_by"`
	ExecutedAt   *time.Time      `json:"executed_at,omitempty" db:"executed_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Scheduled action statuses.
const (
	ActionPending   = "pending"
	ActionCompleted = "completed"
	ActionFailed    = "failed"
	ActionCancelled = "cancelled"
)
