// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

// Package events carries item mutations from the request path to the
// activity recorder over an in-process pub/sub channel. Publishing is
// fire-and-forget: a full buffer or a closed bus never fails a request,
// it only increments a drop counter.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkaschke/bucketlist/internal/models"
)

// TopicItems is the pub/sub topic for item mutation events.
const TopicItems = "items"

// SchemaVersion is the current event payload version.
const SchemaVersion = 1

// ItemEvent describes one mutation of an item. ItemTitle is carried in
// the event so deletions can still be recorded after the row is gone.
type ItemEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	UserID        string    `json:"user_id"`
	ItemID        string    `json:"item_id"`
	ItemTitle     string    `json:"item_title"`
	Action        string    `json:"action"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewItemEvent builds an event for one item mutation. Action is one of
// the models.Action* constants.
func NewItemEvent(action string, item *models.Item) ItemEvent {
	return ItemEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		UserID:        item.UserID,
		ItemID:        item.ID,
		ItemTitle:     item.Title,
		Action:        action,
		OccurredAt:    time.Now().UTC(),
	}
}

// Activity converts the event into an activity feed row.
func (e ItemEvent) Activity() *models.Activity {
	return &models.Activity{
		ID:         e.EventID,
		UserID:     e.UserID,
		ItemID:     e.ItemID,
		ItemTitle:  e.ItemTitle,
		Action:     e.Action,
		OccurredAt: e.OccurredAt,
	}
}
