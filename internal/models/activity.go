// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package models

import "time"

// Activity actions.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCompleted = "completed"
	ActionDeleted   = "deleted"
)

// Activity is one entry in a user's activity feed, recorded whenever an
// item is mutated. ItemTitle is denormalized so the feed survives item
// deletion.
type Activity struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ItemID     string    `json:"item_id"`
	ItemTitle  string    `json:"item_title"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}
