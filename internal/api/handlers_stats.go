// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/mkaschke/bucketlist/internal/models"
)

// Stats returns the caller's completion statistics.
//
// GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := identity(w, r)
	if !ok {
		return
	}

	stats, err := h.db.GetUserStats(r.Context(), id.UserID)
	if err != nil {
		respondDBError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, stats, start)
}

// Activity returns the caller's recent activity feed.
//
// GET /api/v1/activity?limit=
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := identity(w, r)
	if !ok {
		return
	}

	limit, _ := h.pagination(r)
	feed, err := h.db.GetRecentActivity(r.Context(), id.UserID, limit)
	if err != nil {
		respondDBError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{"activity": feed}, start)
}

// Explore returns the public items feed. No authentication required.
//
// GET /api/v1/explore?category=&limit=&offset=
func (h *Handler) Explore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	category := r.URL.Query().Get("category")
	if category != "" && !slices.Contains(models.Categories, category) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown category", nil)
		return
	}

	limit, offset := h.pagination(r)
	items, total, err := h.db.ListPublicItems(r.Context(), category, limit, offset)
	if err != nil {
		respondDBError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, models.PublicItemsResponse{
		Items: items,
		Pagination: models.PaginationInfo{
			Limit:      limit,
			Offset:     offset,
			TotalCount: total,
			HasMore:    offset+len(items) < total,
		},
	}, start)
}
