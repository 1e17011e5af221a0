// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"travel-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient backs the preference store and the organization directory.
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

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		email           TEXT NOT NULL DEFAULT '',
		phone           TEXT NOT NULL DEFAULT '',
		organization_id UUID REFERENCES organizations(id),
		home_city       TEXT NOT NULL DEFAULT '',
		home_airport    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_organization ON users(organization_id)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id             TEXT PRIMARY KEY,
		preferred_airlines  TEXT NOT NULL DEFAULT '',
		avoided_airlines    TEXT NOT NULL DEFAULT '',
		seat_preference     TEXT NOT NULL DEFAULT 'no_preference',
		departure_time      TEXT NOT NULL DEFAULT 'no_preference',
		budget_priority     TEXT NOT NULL DEFAULT 'no_preference',
		preferred_cabin     TEXT NOT NULL DEFAULT 'economy',
		max_layover_minutes INTEGER NOT NULL DEFAULT 180,
		max_budget          DOUBLE PRECISION,
		home_city           TEXT NOT NULL DEFAULT '',
		home_airport        TEXT NOT NULL DEFAULT '',
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables the travel stores read and write.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
