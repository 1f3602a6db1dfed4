// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package models

import "time"

// Stats aggregates a user's goal progress. All counts are computed in SQL;
// CompletionRate is completed/total and 0 when the user has no items.
type Stats struct {
	TotalItems     int     `json:"total_items"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"in_progress"`
	Planned        int     `json:"planned"`
	CompletionRate float64 `json:"completion_rate"`

	ByCategory []CategoryStats `json:"by_category"`
	ByPriority []PriorityStats `json:"by_priority"`

	Overdue int `json:"overdue"`
	DueSoon int `json:"due_soon"`

	CompletedLast30Days int        `json:"completed_last_30_days"`
	LastCompletedAt     *time.Time `json:"last_completed_at,omitempty"`
}

// CategoryStats counts items within one category.
type CategoryStats struct {
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// PriorityStats counts items within one priority.
type PriorityStats struct {
	Priority string `json:"priority"`
	Total    int    `json:"total"`
}
