// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkaschke/bucketlist/internal/models"
)

// GetUserStats computes a user's goal statistics in SQL. Counts come from
// three aggregate queries; nothing is tallied in Go.
func (db *DB) GetUserStats(ctx context.Context, userID string) (*models.Stats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	stats := &models.Stats{
		ByCategory: []models.CategoryStats{},
		ByPriority: []models.PriorityStats{},
	}

	if err := db.scanStatsTotals(ctx, userID, stats); err != nil {
		return nil, err
	}
	if err := db.scanCategoryStats(ctx, userID, stats); err != nil {
		return nil, err
	}
	if err := db.scanPriorityStats(ctx, userID, stats); err != nil {
		return nil, err
	}

	if stats.TotalItems > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.TotalItems)
	}

	return stats, nil
}

func (db *DB) scanStatsTotals(ctx context.Context, userID string, stats *models.Stats) error {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) AS completed,
			COUNT(CASE WHEN status = 'in_progress' THEN 1 END) AS in_progress,
			COUNT(CASE WHEN status = 'planned' THEN 1 END) AS planned,
			COUNT(CASE WHEN due_date IS NOT NULL AND due_date < CURRENT_TIMESTAMP
				AND status != 'completed' THEN 1 END) AS overdue,
			COUNT(CASE WHEN due_date IS NOT NULL
				AND due_date >= CURRENT_TIMESTAMP
				AND due_date < CURRENT_TIMESTAMP + INTERVAL 30 DAY
				AND status != 'completed' THEN 1 END) AS due_soon,
			COUNT(CASE WHEN completed_at IS NOT NULL
				AND completed_at >= CURRENT_TIMESTAMP - INTERVAL 30 DAY THEN 1 END) AS completed_recent,
			MAX(completed_at) AS last_completed_at
		FROM items
		WHERE user_id = ?
	`

	var lastCompletedAt sql.NullTime
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalItems,
		&stats.Completed,
		&stats.InProgress,
		&stats.Planned,
		&stats.Overdue,
		&stats.DueSoon,
		&stats.CompletedLast30Days,
		&lastCompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to get stats totals: %w", err)
	}

	if lastCompletedAt.Valid {
		stats.LastCompletedAt = &lastCompletedAt.Time
	}
	return nil
}

func (db *DB) scanCategoryStats(ctx context.Context, userID string, stats *models.Stats) error {
	query := `
		SELECT
			category,
			COUNT(*) AS total,
			COUNT(CASE WHEN status = 'completed' THEN 1 END) AS completed
		FROM items
		WHERE user_id = ?
		GROUP BY category
		ORDER BY total DESC, category ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to query category stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cs models.CategoryStats
		if err := rows.Scan(&cs.Category, &cs.Total, &cs.Completed); err != nil {
			return fmt.Errorf("failed to scan category stats: %w", err)
		}
		stats.ByCategory = append(stats.ByCategory, cs)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating category stats: %w", err)
	}
	return nil
}

func (db *DB) scanPriorityStats(ctx context.Context, userID string, stats *models.Stats) error {
	query := `
		SELECT priority, COUNT(*) AS total
		FROM items
		WHERE user_id = ?
		GROUP BY priority
		ORDER BY total DESC, priority ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to query priority stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ps models.PriorityStats
		if err := rows.Scan(&ps.Priority, &ps.Total); err != nil {
			return fmt.Errorf("failed to scan priority stats: %w", err)
		}
		stats.ByPriority = append(stats.ByPriority, ps)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating priority stats: %w", err)
	}
	return nil
}
