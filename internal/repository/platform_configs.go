package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketing-workers/internal/models"
)

type PlatformConfigRepository struct {
	db *sql.DB
}

func NewPlatformConfigRepository(db *sql.DB) *PlatformConfigRepository {
	return &PlatformConfigRepository{db: db}
}

func (r *PlatformConfigRepository) Save(ctx context.Context, workspaceID string, cfg models.PlatformConfig) error {
	creds, err := jsonb(cfg.Credentials)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	settings, err := jsonb(cfg.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	missing, err := jsonb(cfg.Missing)
	if err != nil {
		return fmt.Errorf("encode missing: %w", err)
	}
	updatedAt := cfg.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO platform_configs (workspace_id, platform, credentials, settings, configured, missing, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (workspace_id, platform) DO UPDATE
		SET credentials = EXCLUDED.credentials,
		    settings = EXCLUDED.settings,
		    configured = EXCLUDED.configured,
		    missing = EXCLUDED.missing,
		    updated_at = EXCLUDED.updated_at`,
		workspaceID, cfg.Platform, creds, settings, cfg.Configured, missing, updatedAt)
	if err != nil {
		return fmt.Errorf("save platform config %s: %w", cfg.Platform, err)
	}
	return nil
}

func (r *PlatformConfigRepository) Get(ctx context.Context, workspaceID, platform string) (*models.PlatformConfig, error) {
	var (
		cfg                      models.PlatformConfig
		creds, settings, missing []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT platform, credentials, settings, configured, missing, updated_at
		FROM platform_configs
		WHERE workspace_id = $1 AND platform = $2`, workspaceID, platform).
		Scan(&cfg.Platform, &creds, &settings, &cfg.Configured, &missing, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get platform config %s: %w", platform, err)
	}

	if err := fromJSONB(creds, &cfg.Credentials); err != nil {
		return nil, err
	}
	if err := fromJSONB(settings, &cfg.Settings); err != nil {
		return nil, err
	}
	cfg.Missing = []string{}
	if err := fromJSONB(missing, &cfg.Missing); err != nil {
		return nil, err
	}
	return &cfg, nil
}
