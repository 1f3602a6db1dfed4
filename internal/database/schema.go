// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mkaschke/bucketlist/internal/logging"
)

// createTables creates the base schema. Statements are idempotent so
// startup against an existing database is a no-op.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR PRIMARY KEY,
			username VARCHAR NOT NULL UNIQUE,
			email VARCHAR NOT NULL UNIQUE,
			password_hash VARCHAR NOT NULL,
			role VARCHAR NOT NULL DEFAULT 'user',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			description VARCHAR,
			category VARCHAR NOT NULL,
			priority VARCHAR NOT NULL,
			status VARCHAR NOT NULL,
			due_date TIMESTAMP,
			public BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS activity (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			item_id VARCHAR NOT NULL,
			item_title VARCHAR NOT NULL,
			action VARCHAR NOT NULL,
			occurred_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// migration is one versioned schema change applied exactly once.
type migration struct {
	version int
	sql     string
}

// migrations are applied in order; versions already present in
// schema_migrations are skipped. Append only, never edit an entry.
var migrations = []migration{}

// runVersionedMigrations applies pending migrations in order.
func (db *DB) runVersionedMigrations() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	for _, m := range migrations {
		applied, err := db.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		if _, err := db.conn.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			m.version, time.Now()); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		logging.Info().Int("version", m.version).Msg("Applied database migration")
	}

	return nil
}

func (db *DB) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}

// createIndexes creates secondary indexes for common query paths.
func (db *DB) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_items_user_created ON items (user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_items_public_created ON items (public, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_user_occurred ON activity (user_id, occurred_at)`,
	}

	for _, stmt := range indexes {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
