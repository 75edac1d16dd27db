package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// UserGroupService manages admin-defined user groups and their
// membership. Groups are organizational: bulk suspensions and
// scheduled actions address their members.
type UserGroupService struct {
	db DB
}

func NewUserGroupService(db DB) *UserGroupService {
	return &UserGroupService{db: db}
}

func (s *UserGroupService) List(ctx context.Context) ([]model.UserGroup, error) {
	rows, err := s.db.Query(ctx,
		`SELECT g.id, g.name, g.description, g.color, COUNT(m.id), g.created_at, g.updated_at
		 FROM user_groups g LEFT JOIN user_group_members m ON m.group_id = g.id
		 GROUP BY g.id ORDER BY g.name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.UserGroup
	for rows.Next() {
		var g model.UserGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Color, &g.MemberCount, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

func (s *UserGroupService) Get(ctx context.Context, id string) (*model.UserGroup, error) {
	var g model.UserGroup
	err := s.db.QueryRow(ctx,
		`SELECT g.id, g.name, g.description, g.color, COUNT(m.id), g.created_at, g.updated_at
		 FROM user_groups g LEFT JOIN user_group_members m ON m.group_id = g.id
		 WHERE g.id = $1 GROUP BY g.id`, id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.Color, &g.MemberCount, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", id, err)
	}
	return &g, nil
}

// CreateGroupParams carries the fields for a new group.
type CreateGroupParams struct {
	Name        string
	Description *string
	Color       string
}

func (s *UserGroupService) Create(ctx context.Context, params CreateGroupParams) (*model.UserGroup, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, Validationf("group name is required")
	}
	color := params.Color
	if color == "" {
		color = "blue"
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM user_groups WHERE name = $1)", name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check group uniqueness: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: group %s", ErrConflict, name)
	}

	now := time.Now()
	g := &model.UserGroup{
		ID:          platform.NewID(),
		Name:        name,
		Description: params.Description,
		Color:       color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO user_groups (id, name, description, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.Name, g.Description, g.Color, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	return g, nil
}

// UpdateGroupParams carries a partial group update.
type UpdateGroupParams struct {
	Name        *string
	Description *string
	Color       *string
}

func (s *UserGroupService) Update(ctx context.Context, id string, params UpdateGroupParams) (*model.UserGroup, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, Validationf("group name is required")
		}
		g.Name = name
	}
	if params.Description != nil {
		g.Description = params.Description
	}
	if params.Color != nil {
		g.Color = *params.Color
	}
	g.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx,
		`UPDATE user_groups SET name = $1, description = $2, color = $3, updated_at = $4 WHERE id = $5`,
		g.Name, g.Description, g.Color, g.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update group %s: %w", id, err)
	}
	return g, nil
}

// Delete removes a group. Memberships go with it; users are untouched.
func (s *UserGroupService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM user_groups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete group %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: group %s", ErrNotFound, id)
	}
	return nil
}

// Members lists a group's membership with user detail, ordered by
// email.
func (s *UserGroupService) Members(ctx context.Context, groupID string) ([]model.GroupMember, error) {
	if err := s.requireGroup(ctx, groupID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT m.user_id, u.email, u.first_name, u.last_name, u.is_suspended, m.added_at
		 FROM user_group_members m JOIN users u ON u.id = m.user_id
		 WHERE m.group_id = $1 ORDER BY u.email`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members of group %s: %w", groupID, err)
	}
	defer rows.Close()

	var members []model.GroupMember
	for rows.Next() {
		var m model.GroupMember
		if err := rows.Scan(&m.UserID, &m.Email, &m.FirstName, &m.LastName, &m.IsSuspended, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// AddMembers adds users to a group and reports how many were actually
// added. Unknown user IDs and existing memberships are skipped, so a
// bulk add is safe to retry.
func (s *UserGroupService) AddMembers(ctx context.Context, groupID string, userIDs []string, addedBy *string) (int, error) {
	if len(userIDs) == 0 {
		return 0, Validationf("at least one user ID is required")
	}
	if err := s.requireGroup(ctx, groupID); err != nil {
		return 0, err
	}

	added := 0
	for _, userID := range userIDs {
		tag, err := s.db.Exec(ctx,
			`INSERT INTO user_group_members (id, group_id, user_id, added_by, added_at)
			 SELECT $1, $2, id, $3, now() FROM users WHERE id = $4
			 ON CONFLICT (group_id, user_id) DO NOTHING`,
			platform.NewID(), groupID, addedBy, userID,
		)
		if err != nil {
			return added, fmt.Errorf("add user %s to group %s: %w", userID, groupID, err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

func (s *UserGroupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM user_group_members WHERE group_id = $1 AND user_id = $2", groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove user %s from group %s: %w", userID, groupID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: membership of user %s in group %s", ErrNotFound, userID, groupID)
	}
	return nil
}

func (s *UserGroupService) requireGroup(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM user_groups WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("check group %s: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("%w: group %s", ErrNotFound, id)
	}
	return nil
}
