package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NeonAnubis/afrimail-backend/internal/model"
	"github.com/NeonAnubis/afrimail-backend/internal/platform"
)

// AnnouncementService manages provider-wide notices. Users only see
// published announcements.
type AnnouncementService struct {
	db DB
}

func NewAnnouncementService(db DB) *AnnouncementService {
	return &AnnouncementService{db: db}
}

func (s *AnnouncementService) List(ctx context.Context, publishedOnly bool) ([]model.Announcement, error) {
	query := `SELECT id, title, body, is_published, created_by, created_at, updated_at FROM announcements`
	if publishedOnly {
		query += ` WHERE is_published`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	var items []model.Announcement
	for rows.Next() {
		var a model.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.IsPublished, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate announcements: %w", err)
	}
	return items, nil
}

func (s *AnnouncementService) GetByID(ctx context.Context, id string) (*model.Announcement, error) {
	var a model.Announcement
	err := s.db.QueryRow(ctx,
		`SELECT id, title, body, is_published, created_by, created_at, updated_at FROM announcements WHERE id = $1`, id,
	).Scan(&a.ID, &a.Title, &a.Body, &a.IsPublished, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: announcement %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get announcement %s: %w", id, err)
	}
	return &a, nil
}

func (s *AnnouncementService) Create(ctx context.Context, title, body string, createdBy *string) (*model.Announcement, error) {
	if title == "" || body == "" {
		return nil, Validationf("announcement requires a title and a body")
	}
	now := time.Now()
	a := &model.Announcement{
		ID:        platform.NewID(),
		Title:     title,
		Body:      body,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO announcements (id, title, body, is_published, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, FALSE, $4, $5, $6)`,
		a.ID, a.Title, a.Body, a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert announcement: %w", err)
	}
	return a, nil
}

// UpdateAnnouncementParams carries a partial announcement update.
type UpdateAnnouncementParams struct {
	Title       *string
	Body        *string
	IsPublished *bool
}

func (s *AnnouncementService) Update(ctx context.Context, id string, params UpdateAnnouncementParams) (*model.Announcement, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Title != nil {
		a.Title = *params.Title
	}
	if params.Body != nil {
		a.Body = *params.Body
	}
	if params.IsPublished != nil {
		a.IsPublished = *params.IsPublished
	}
	a.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx,
		"UPDATE announcements SET title = $1, body = $2, is_published = $3, updated_at = $4 WHERE id = $5",
		a.Title, a.Body, a.IsPublished, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update announcement %s: %w", id, err)
	}
	return a, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM announcements WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete announcement %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: announcement %s", ErrNotFound, id)
	}
	return nil
}
