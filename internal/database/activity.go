// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkaschke/bucketlist/internal/models"
)

// InsertActivity records one activity feed entry. A missing ID is
// generated here so event consumers don't have to care.
func (db *DB) InsertActivity(ctx context.Context, a *models.Activity) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO activity (id, user_id, item_id, item_title, action, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.conn.ExecContext(ctx, query,
		a.ID, a.UserID, a.ItemID, a.ItemTitle, a.Action, a.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}

// GetRecentActivity returns a user's most recent activity entries.
func (db *DB) GetRecentActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, user_id, item_id, item_title, action, occurred_at
		FROM activity
		WHERE user_id = ?
		ORDER BY occurred_at DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	entries := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.ItemID, &a.ItemTitle, &a.Action, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}

	return entries, nil
}

// PruneActivityOlderThan deletes activity entries older than the cutoff.
// Returns the number of rows removed.
func (db *DB) PruneActivityOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM activity WHERE occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune activity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
