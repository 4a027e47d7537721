package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketing-workers/internal/models"
)

type CompetitorRepository struct {
	db *sql.DB
}

func NewCompetitorRepository(db *sql.DB) *CompetitorRepository {
	return &CompetitorRepository{db: db}
}

const upsertCompetitor = `
	INSERT INTO competitors (id, workspace_id, url, platform, name, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (workspace_id, id) DO UPDATE
	SET url = EXCLUDED.url,
	    platform = EXCLUDED.platform,
	    name = EXCLUDED.name,
	    metadata = EXCLUDED.metadata`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, workspaceID string, c models.Competitor) error {
	meta, err := jsonb(c.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = db.ExecContext(ctx, upsertCompetitor,
		c.ID, workspaceID, c.URL, c.Platform, c.Name, meta, createdAt)
	return err
}

func (r *CompetitorRepository) Upsert(ctx context.Context, workspaceID string, c models.Competitor) error {
	if err := upsert(ctx, r.db, workspaceID, c); err != nil {
		return fmt.Errorf("upsert competitor %s: %w", c.ID, err)
	}
	return nil
}

// ReplaceAll swaps the workspace's competitor list in one transaction.
func (r *CompetitorRepository) ReplaceAll(ctx context.Context, workspaceID string, competitors []models.Competitor) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM competitors WHERE workspace_id = $1`, workspaceID); err != nil {
		return fmt.Errorf("clear competitors: %w", err)
	}
	for _, c := range competitors {
		if err := upsert(ctx, tx, workspaceID, c); err != nil {
			return fmt.Errorf("upsert competitor %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (r *CompetitorRepository) List(ctx context.Context, workspaceID string) ([]models.Competitor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, url, platform, name, metadata, created_at
		FROM competitors
		WHERE workspace_id = $1
		ORDER BY created_at, id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	defer rows.Close()

	competitors := []models.Competitor{}
	for rows.Next() {
		var c models.Competitor
		var meta []byte
		if err := rows.Scan(&c.ID, &c.URL, &c.Platform, &c.Name, &meta, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		if len(meta) > 0 {
			c.Metadata = &models.DiscoveryMetadata{}
			if err := fromJSONB(meta, c.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", c.ID, err)
			}
		}
		competitors = append(competitors, c)
	}
	return competitors, rows.Err()
}

// Delete reports whether a row was removed.
func (r *CompetitorRepository) Delete(ctx context.Context, workspaceID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM competitors WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return false, fmt.Errorf("delete competitor %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
