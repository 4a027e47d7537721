// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketing-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pooled lib/pq connection. It does not dial; call Ping.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Migrate creates the tables the repositories write to.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS competitors (
		id            TEXT NOT NULL,
		workspace_id  TEXT NOT NULL,
		url           TEXT NOT NULL,
		platform      TEXT NOT NULL,
		name          TEXT NOT NULL,
		metadata      JSONB,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (workspace_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS social_posts (
		id             TEXT PRIMARY KEY,
		workspace_id   TEXT NOT NULL,
		platform       TEXT NOT NULL,
		content        TEXT NOT NULL,
		hashtags       JSONB,
		image_url      TEXT,
		scheduled_date TEXT,
		scheduled_time TEXT,
		status         TEXT NOT NULL,
		engagement     JSONB,
		custom         BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS platform_configs (
		workspace_id TEXT NOT NULL,
		platform     TEXT NOT NULL,
		credentials  JSONB,
		settings     JSONB,
		configured   BOOLEAN NOT NULL DEFAULT FALSE,
		missing      JSONB,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (workspace_id, platform)
	)`,
}
