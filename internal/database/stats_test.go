// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package database

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/mkaschke/bucketlist/internal/models"
)

func TestGetUserStatsEmpty(t *testing.T) {
	db := setupTestDB(t)
	user := insertTestUser(t, db, "empty")

	stats, err := db.GetUserStats(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserStats() error: %v", err)
	}

	if stats.TotalItems != 0 || stats.CompletionRate != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
	if stats.ByCategory == nil || stats.ByPriority == nil {
		t.Error("breakdown slices should be empty, not nil")
	}
	if stats.LastCompletedAt != nil {
		t.Error("LastCompletedAt should be nil with no completions")
	}
}

func TestGetUserStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := insertTestUser(t, db, "statsy")
	other := insertTestUser(t, db, "neighbor")

	now := time.Now().UTC().Truncate(time.Millisecond)
	past := now.Add(-48 * time.Hour)
	soon := now.Add(7 * 24 * time.Hour)

	// Two travel (one completed), one health overdue, one learning due soon.
	insertTestItem(t, db, user.ID, func(i *models.Item) {
		i.Status = models.StatusCompleted
		i.CompletedAt = &now
	})
	insertTestItem(t, db, user.ID, nil)
	insertTestItem(t, db, user.ID, func(i *models.Item) {
		i.Category = models.CategoryHealth
		i.Status = models.StatusInProgress
		i.Priority = models.PriorityHigh
		i.DueDate = &past
	})
	insertTestItem(t, db, user.ID, func(i *models.Item) {
		i.Category = models.CategoryLearning
		i.DueDate = &soon
	})

	// Another user's items must not leak into the stats.
	insertTestItem(t, db, other.ID, nil)

	stats, err := db.GetUserStats(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserStats() error: %v", err)
	}

	if stats.TotalItems != 4 {
		t.Errorf("TotalItems = %d, want 4", stats.TotalItems)
	}
	if stats.Completed != 1 || stats.InProgress != 1 || stats.Planned != 2 {
		t.Errorf("status counts = %d/%d/%d, want 1/1/2",
			stats.Completed, stats.InProgress, stats.Planned)
	}
	if math.Abs(stats.CompletionRate-0.25) > 1e-9 {
		t.Errorf("CompletionRate = %v, want 0.25", stats.CompletionRate)
	}
	if stats.Overdue != 1 {
		t.Errorf("Overdue = %d, want 1", stats.Overdue)
	}
	if stats.DueSoon != 1 {
		t.Errorf("DueSoon = %d, want 1", stats.DueSoon)
	}
	if stats.CompletedLast30Days != 1 {
		t.Errorf("CompletedLast30Days = %d, want 1", stats.CompletedLast30Days)
	}
	if stats.LastCompletedAt == nil {
		t.Error("LastCompletedAt is nil")
	}

	var travel *models.CategoryStats
	for i := range stats.ByCategory {
		if stats.ByCategory[i].Category == models.CategoryTravel {
			travel = &stats.ByCategory[i]
		}
	}
	if travel == nil || travel.Total != 2 || travel.Completed != 1 {
		t.Errorf("travel category stats = %+v", travel)
	}

	var high int
	for _, ps := range stats.ByPriority {
		if ps.Priority == models.PriorityHigh {
			high = ps.Total
		}
	}
	if high != 1 {
		t.Errorf("high priority count = %d, want 1", high)
	}
}
