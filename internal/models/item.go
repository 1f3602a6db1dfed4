// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

// Package models defines the domain types shared by the database,
// API, and web layers.
package models

import "time"

// Item categories. Stored as plain strings so the set can grow without a
// schema migration; validation rejects anything outside this list.
const (
	CategoryTravel        = "travel"
	CategoryAdventure     = "adventure"
	CategoryCareer        = "career"
	CategoryLearning      = "learning"
	CategoryHealth        = "health"
	CategoryFinance       = "finance"
	CategoryCreative      = "creative"
	CategoryRelationships = "relationships"
	CategoryOther         = "other"
)

// Categories lists all valid item categories in display order.
var Categories = []string{
	CategoryTravel,
	CategoryAdventure,
	CategoryCareer,
	CategoryLearning,
	CategoryHealth,
	CategoryFinance,
	CategoryCreative,
	CategoryRelationships,
	CategoryOther,
}

// Item priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Priorities lists all valid priorities in ascending order.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

// Item statuses.
const (
	StatusPlanned    = "planned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Statuses lists all valid statuses in lifecycle order.
var Statuses = []string{StatusPlanned, StatusInProgress, StatusCompleted}

// Item is a single bucket list goal owned by a user.
//
// CompletedAt is non-nil exactly when Status is StatusCompleted; the
// database layer maintains that invariant on every write.
type Item struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Public      bool       `json:"public"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsOverdue reports whether the item has a due date in the past and is
// not yet completed.
func (i *Item) IsOverdue(now time.Time) bool {
	return i.DueDate != nil && i.DueDate.Before(now) && i.Status != StatusCompleted
}

// SetStatus transitions the item's status, keeping CompletedAt in sync:
// entering completed stamps it, leaving completed clears it.
func (i *Item) SetStatus(status string, now time.Time) {
	if status == i.Status {
		return
	}
	if status == StatusCompleted {
		completedAt := now
		i.CompletedAt = &completedAt
	} else {
		i.CompletedAt = nil
	}
	i.Status = status
}

// CreateItemRequest is the payload for creating an item.
type CreateItemRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Category    string     `json:"category" validate:"required,oneof=travel adventure career learning health finance creative relationships other"`
	Priority    string     `json:"priority" validate:"required,oneof=low medium high"`
	Status      string     `json:"status" validate:"omitempty,oneof=planned in_progress completed"`
	DueDate     *time.Time `json:"due_date" validate:"omitempty"`
	Public      bool       `json:"public"`
}

// UpdateItemRequest is the payload for partially updating an item.
// Nil pointers leave the corresponding field unchanged.
type UpdateItemRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Category    *string    `json:"category" validate:"omitempty,oneof=travel adventure career learning health finance creative relationships other"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *string    `json:"status" validate:"omitempty,oneof=planned in_progress completed"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
	Public      *bool      `json:"public"`
}

// ItemFilter narrows item list queries. Zero values mean "no filter".
type ItemFilter struct {
	Category string
	Priority string
	Status   string
	Search   string
	Overdue  bool
	SortBy   string // "created_at" (default) or "due_date"
	Limit    int
	Offset   int
}

// ItemsResponse wraps a page of items with pagination metadata.
type ItemsResponse struct {
	Items      []Item         `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// PublicItem is the reduced view of a shared item shown on the explore
// feed. It deliberately omits description and due date.
type PublicItem struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicItemsResponse wraps a page of the explore feed.
type PublicItemsResponse struct {
	Items      []PublicItem   `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
