package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketing-workers/internal/models"
)

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `id, platform, content, hashtags, image_url, scheduled_date, scheduled_time,
	status, engagement, custom, created_at, updated_at`

func (r *PostRepository) Insert(ctx context.Context, workspaceID string, p models.SocialMediaPost) error {
	hashtags, engagement, err := encodePost(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO social_posts (id, workspace_id, platform, content, hashtags, image_url,
			scheduled_date, scheduled_time, status, engagement, custom, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, workspaceID, p.Platform, p.Content, hashtags, p.ImageURL,
		p.ScheduledDate, p.ScheduledTime, p.Status, engagement, p.Custom, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert post %s: %w", p.ID, err)
	}
	return nil
}

// Get, Update and UpdateStatus only match posts of the given workspace.
func (r *PostRepository) Get(ctx context.Context, workspaceID, id string) (*models.SocialMediaPost, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+`
		FROM social_posts WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return p, nil
}

// Update rewrites every mutable column and bumps updated_at.
func (r *PostRepository) Update(ctx context.Context, workspaceID string, p models.SocialMediaPost) error {
	hashtags, engagement, err := encodePost(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE social_posts
		SET content = $2, hashtags = $3, image_url = $4, scheduled_date = $5,
		    scheduled_time = $6, status = $7, engagement = $8, updated_at = $9
		WHERE id = $1 AND workspace_id = $10`,
		p.ID, p.Content, hashtags, p.ImageURL, p.ScheduledDate, p.ScheduledTime,
		p.Status, engagement, time.Now().UTC(), workspaceID)
	if err != nil {
		return fmt.Errorf("update post %s: %w", p.ID, err)
	}
	return requireRow(res)
}

func (r *PostRepository) UpdateStatus(ctx context.Context, workspaceID, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE social_posts SET status = $2, updated_at = $3 WHERE id = $1 AND workspace_id = $4`,
		id, status, time.Now().UTC(), workspaceID)
	if err != nil {
		return fmt.Errorf("update post status %s: %w", id, err)
	}
	return requireRow(res)
}

func (r *PostRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]models.SocialMediaPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+`
		FROM social_posts
		WHERE workspace_id = $1 AND status <> 'cancelled'
		ORDER BY created_at, id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.SocialMediaPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(s scanner) (*models.SocialMediaPost, error) {
	var (
		p                     models.SocialMediaPost
		hashtags, engagement  []byte
		imageURL, date, clock sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Platform, &p.Content, &hashtags, &imageURL, &date, &clock,
		&p.Status, &engagement, &p.Custom, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ImageURL = imageURL.String
	p.ScheduledDate = date.String
	p.ScheduledTime = clock.String

	p.Hashtags = []string{}
	if err := fromJSONB(hashtags, &p.Hashtags); err != nil {
		return nil, err
	}
	if len(engagement) > 0 {
		p.EngagementPrediction = &models.EngagementPrediction{}
		if err := fromJSONB(engagement, p.EngagementPrediction); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func encodePost(p models.SocialMediaPost) (interface{}, interface{}, error) {
	hashtags, err := jsonb(p.Hashtags)
	if err != nil {
		return nil, nil, fmt.Errorf("encode hashtags: %w", err)
	}
	var engagement interface{}
	if p.EngagementPrediction != nil {
		if engagement, err = jsonb(p.EngagementPrediction); err != nil {
			return nil, nil, fmt.Errorf("encode engagement: %w", err)
		}
	}
	return hashtags, engagement, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
