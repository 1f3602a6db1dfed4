// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkaschke/bucketlist/internal/auth"
	"github.com/mkaschke/bucketlist/internal/metrics"
	"github.com/mkaschke/bucketlist/internal/models"
)

// identity pulls the authenticated caller, writing the 401 itself.
func identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authentication required", nil)
		return nil, false
	}
	return id, true
}

// ListItems returns the caller's items, filtered and paginated. Admins may
// pass user_id to list another user's items.
//
// GET /api/v1/items?category=&priority=&status=&search=&overdue=&sort=&user_id=&limit=&offset=
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := identity(w, r)
	if !ok {
		return
	}

	filter, ok := h.parseItemFilter(w, r)
	if !ok {
		return
	}

	owner := id.UserID
	if target := r.URL.Query().Get("user_id"); target != "" {
		if !id.IsAdmin() {
			respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Admin access required", nil)
			return
		}
		owner = target
	}

	items, total, err := h.db.ListItems(r.Context(), owner, filter)
	if err != nil {
		respondDBError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, models.ItemsResponse{
		Items: items,
		Pagination: models.PaginationInfo{
			Limit:      filter.Limit,
			Offset:     filter.Offset,
			TotalCount: total,
			HasMore:    filter.Offset+len(items) < total,
		},
	}, start)
}

// parseItemFilter builds an ItemFilter from query parameters, rejecting
// values outside the known vocabularies.
func (h *Handler) parseItemFilter(w http.ResponseWriter, r *http.Request) (models.ItemFilter, bool) {
	q := r.URL.Query()
	filter := models.ItemFilter{
		Category: q.Get("category"),
		Priority: q.Get("priority"),
		Status:   q.Get("status"),
		Search:   strings.TrimSpace(q.Get("search")),
		Overdue:  q.Get("overdue") == "true",
		SortBy:   q.Get("sort"),
	}
	filter.Limit, filter.Offset = h.pagination(r)

	if filter.Category != "" && !slices.Contains(models.Categories, filter.Category) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown category", nil)
		return filter, false
	}
	if filter.Priority != "" && !slices.Contains(models.Priorities, filter.Priority) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown priority", nil)
		return filter, false
	}
	if filter.Status != "" && !slices.Contains(models.Statuses, filter.Status) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status", nil)
		return filter, false
	}
	if filter.SortBy != "" && filter.SortBy != "created_at" && filter.SortBy != "due_date" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown sort field", nil)
		return filter, false
	}

	return filter, true
}

// CreateItem adds a new item for the caller.
//
// POST /api/v1/items
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req models.CreateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	now := time.Now().UTC()
	item := &models.Item{
		ID:          uuid.NewString(),
		UserID:      id.UserID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      models.StatusPlanned,
		DueDate:     req.DueDate,
		Public:      req.Public,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Status != "" && req.Status != models.StatusPlanned {
		item.SetStatus(req.Status, now)
	}

	if err := h.db.CreateItem(r.Context(), item); err != nil {
		respondDBError(w, err)
		return
	}

	metrics.RecordItemOperation("create")
	h.publisher.ItemCreated(r.Context(), item)

	respondSuccess(w, http.StatusCreated, item, start)
}

// GetItem returns one of the caller's items. Admins may read any item;
// everyone else gets a 404 for foreign IDs so existence never leaks.
//
// GET /api/v1/items/{id}
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := identity(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "id")
	var item *models.Item
	var err error
	if id.IsAdmin() {
		item, err = h.db.GetItemByID(r.Context(), itemID)
	} else {
		item, err = h.db.GetItemForUser(r.Context(), itemID, id.UserID)
	}
	if err != nil {
		respondDBError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, item, start)
}

// UpdateItem applies a partial update to one of the caller's items.
//
// PATCH /api/v1/items/{id}
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req models.UpdateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	item, err := h.db.GetItemForUser(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondDBError(w, err)
		return
	}

	wasCompleted := item.Status == models.StatusCompleted
	applyItemUpdate(item, &req, time.Now().UTC())

	if err := h.db.UpdateItem(r.Context(), item); err != nil {
		respondDBError(w, err)
		return
	}

	nowCompleted := !wasCompleted && item.Status == models.StatusCompleted
	operation := "update"
	if nowCompleted {
		operation = "complete"
	}
	metrics.RecordItemOperation(operation)
	h.publisher.ItemUpdated(r.Context(), item, nowCompleted)

	respondSuccess(w, http.StatusOK, item, start)
}

// applyItemUpdate merges the non-nil request fields into the item.
// Status changes go through SetStatus so CompletedAt stays consistent.
func applyItemUpdate(item *models.Item, req *models.UpdateItemRequest, now time.Time) {
	if req.Title != nil {
		item.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Priority != nil {
		item.Priority = *req.Priority
	}
	if req.Public != nil {
		item.Public = *req.Public
	}
	if req.ClearDue {
		item.DueDate = nil
	} else if req.DueDate != nil {
		item.DueDate = req.DueDate
	}
	if req.Status != nil {
		item.SetStatus(*req.Status, now)
	}
	item.UpdatedAt = now
}

// DeleteItem removes one of the caller's items.
//
// DELETE /api/v1/items/{id}
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := identity(w, r)
	if !ok {
		return
	}

	// Fetch first so the deletion event can carry the title.
	item, err := h.db.GetItemForUser(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		respondDBError(w, err)
		return
	}

	if err := h.db.DeleteItem(r.Context(), item.ID, id.UserID); err != nil {
		respondDBError(w, err)
		return
	}

	metrics.RecordItemOperation("delete")
	h.publisher.ItemDeleted(r.Context(), item)

	respondSuccess(w, http.StatusOK, map[string]string{"message": "item deleted"}, start)
}
