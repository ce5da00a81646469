package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sow-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// schemaStatements create the tables the SOW workers read and write.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS wind_zones (
		state              TEXT NOT NULL,
		county             TEXT NOT NULL DEFAULT '',
		design_wind_speed  DOUBLE PRECISION NOT NULL,
		hvhz               BOOLEAN NOT NULL DEFAULT FALSE,
		exposure_category  TEXT NOT NULL DEFAULT 'C',
		code_reference     TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (state, county)
	)`,
	`CREATE TABLE IF NOT EXISTS sow_generations (
		id               UUID PRIMARY KEY,
		job_key          BIGINT NOT NULL,
		template_id      TEXT,
		confidence_score INTEGER,
		engine_version   TEXT NOT NULL,
		status           TEXT NOT NULL,
		input_specs      JSONB NOT NULL,
		result           JSONB,
		error_code       TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sow_generations_template ON sow_generations (template_id)`,
}

type PostgresClient struct {
	DB *sql.DB
}

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

// NewPostgresFromDB wraps an existing handle, e.g. one from sqlmock.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// EnsureSchema creates missing tables inside one transaction.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}

// WithTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (c *PostgresClient) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
