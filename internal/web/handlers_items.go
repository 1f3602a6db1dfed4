// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package web

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/metrics"
	"github.com/mkaschke/bucketlist/internal/models"
	"github.com/mkaschke/bucketlist/internal/validation"
)

// ItemsList shows the caller's goals with filters and pagination.
func (s *Server) ItemsList(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	filter := s.itemFilterFromQuery(r)
	items, total, err := s.db.ListItems(r.Context(), id.UserID, filter)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not load your goals.")
		return
	}

	prevOffset := filter.Offset - filter.Limit
	if prevOffset < 0 {
		prevOffset = 0
	}

	s.render(w, r, http.StatusOK, "items", &pageData{
		Title: "My Goals",
		Data: map[string]interface{}{
			"Items":  items,
			"Filter": filter,
			"Pagination": models.PaginationInfo{
				Limit:      filter.Limit,
				Offset:     filter.Offset,
				TotalCount: total,
				HasMore:    filter.Offset+len(items) < total,
			},
			"PrevOffset": prevOffset,
			"NextOffset": filter.Offset + filter.Limit,
		},
	})
}

// itemFilterFromQuery builds a filter from the list page's query string.
// Unknown values are dropped rather than rejected; a hand-edited URL
// should not break the page.
func (s *Server) itemFilterFromQuery(r *http.Request) models.ItemFilter {
	q := r.URL.Query()
	filter := models.ItemFilter{
		Category: q.Get("category"),
		Priority: q.Get("priority"),
		Status:   q.Get("status"),
		Search:   strings.TrimSpace(q.Get("search")),
		SortBy:   q.Get("sort"),
	}

	if filter.Category != "" && !slices.Contains(models.Categories, filter.Category) {
		filter.Category = ""
	}
	if filter.Priority != "" && !slices.Contains(models.Priorities, filter.Priority) {
		filter.Priority = ""
	}
	if filter.Status != "" && !slices.Contains(models.Statuses, filter.Status) {
		filter.Status = ""
	}
	if filter.SortBy != "due_date" {
		filter.SortBy = "created_at"
	}

	filter.Limit = s.config.API.DefaultPageSize
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	return filter
}

// ItemNewForm renders the empty goal form.
func (s *Server) ItemNewForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
		return
	}

	s.render(w, r, http.StatusOK, "item_form", &pageData{
		Title: "New Goal",
		Data: map[string]interface{}{
			"Item": models.Item{Priority: models.PriorityMedium, Category: models.CategoryTravel},
		},
	})
}

// ItemCreate handles the new goal form submission.
func (s *Server) ItemCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}

	req, parseErrs := itemRequestFromForm(r)
	item := models.Item{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Public:      req.Public,
	}

	fieldErrors := parseErrs
	if ve := validation.ValidateStruct(&req); ve != nil {
		fieldErrors = mergeFieldErrors(fieldErrors, ve.FieldMessages())
	}
	if len(fieldErrors) > 0 {
		s.render(w, r, http.StatusBadRequest, "item_form", &pageData{
			Title:       "New Goal",
			FieldErrors: fieldErrors,
			Data:        map[string]interface{}{"Item": item},
		})
		return
	}

	now := time.Now().UTC()
	item.ID = uuid.NewString()
	item.UserID = id.UserID
	item.Status = models.StatusPlanned
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.db.CreateItem(r.Context(), &item); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not save the goal.")
		return
	}

	metrics.RecordItemOperation("create")
	s.publisher.ItemCreated(r.Context(), &item)

	http.Redirect(w, r, "/items?flash=created", http.StatusSeeOther)
}

// ItemEditForm renders the form pre-filled with an existing goal.
func (s *Server) ItemEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	item, err := s.db.GetItemForUser(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		s.respondItemError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "item_form", &pageData{
		Title: "Edit Goal",
		Data:  map[string]interface{}{"Item": *item},
	})
}

// ItemUpdate handles the edit form submission.
func (s *Server) ItemUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}

	item, err := s.db.GetItemForUser(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		s.respondItemError(w, r, err)
		return
	}

	req, parseErrs := itemRequestFromForm(r)
	fieldErrors := parseErrs
	if ve := validation.ValidateStruct(&req); ve != nil {
		fieldErrors = mergeFieldErrors(fieldErrors, ve.FieldMessages())
	}

	now := time.Now().UTC()
	wasCompleted := item.Status == models.StatusCompleted

	item.Title = req.Title
	item.Description = req.Description
	item.Category = req.Category
	item.Priority = req.Priority
	item.DueDate = req.DueDate
	item.Public = req.Public
	if status := r.PostFormValue("status"); status != "" && slices.Contains(models.Statuses, status) {
		item.SetStatus(status, now)
	}
	item.UpdatedAt = now

	if len(fieldErrors) > 0 {
		s.render(w, r, http.StatusBadRequest, "item_form", &pageData{
			Title:       "Edit Goal",
			FieldErrors: fieldErrors,
			Data:        map[string]interface{}{"Item": *item},
		})
		return
	}

	if err := s.db.UpdateItem(r.Context(), item); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not save the goal.")
		return
	}

	nowCompleted := !wasCompleted && item.Status == models.StatusCompleted
	flash := "updated"
	operation := "update"
	if nowCompleted {
		flash = "completed"
		operation = "complete"
	}
	metrics.RecordItemOperation(operation)
	s.publisher.ItemUpdated(r.Context(), item, nowCompleted)

	http.Redirect(w, r, "/items?flash="+flash, http.StatusSeeOther)
}

// ItemComplete is the one-click "Done" button on the list page.
func (s *Server) ItemComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	item, err := s.db.GetItemForUser(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		s.respondItemError(w, r, err)
		return
	}

	if item.Status != models.StatusCompleted {
		now := time.Now().UTC()
		item.SetStatus(models.StatusCompleted, now)
		item.UpdatedAt = now
		if err := s.db.UpdateItem(r.Context(), item); err != nil {
			s.renderError(w, r, http.StatusInternalServerError, "Could not update the goal.")
			return
		}
		metrics.RecordItemOperation("complete")
		s.publisher.ItemUpdated(r.Context(), item, true)
	}

	http.Redirect(w, r, "/items?flash=completed", http.StatusSeeOther)
}

// ItemDelete removes a goal.
func (s *Server) ItemDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	item, err := s.db.GetItemForUser(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		s.respondItemError(w, r, err)
		return
	}

	if err := s.db.DeleteItem(r.Context(), item.ID, id.UserID); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not delete the goal.")
		return
	}

	metrics.RecordItemOperation("delete")
	s.publisher.ItemDeleted(r.Context(), item)

	http.Redirect(w, r, "/items?flash=deleted", http.StatusSeeOther)
}

// StatsPage renders the full statistics page.
func (s *Server) StatsPage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	stats, err := s.db.GetUserStats(r.Context(), id.UserID)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not load your stats.")
		return
	}

	s.render(w, r, http.StatusOK, "stats", &pageData{
		Title: "Stats",
		Data:  map[string]interface{}{"Stats": stats},
	})
}

// ExplorePage renders the public goals feed. Open to anonymous visitors.
func (s *Server) ExplorePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")
	if category != "" && !slices.Contains(models.Categories, category) {
		category = ""
	}

	limit := s.config.API.DefaultPageSize
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		offset = n
	}

	items, total, err := s.db.ListPublicItems(r.Context(), category, limit, offset)
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Could not load the explore feed.")
		return
	}

	prevOffset := offset - limit
	if prevOffset < 0 {
		prevOffset = 0
	}

	s.render(w, r, http.StatusOK, "explore", &pageData{
		Title: "Explore",
		Data: map[string]interface{}{
			"Items":    items,
			"Category": category,
			"Pagination": models.PaginationInfo{
				Limit:      limit,
				Offset:     offset,
				TotalCount: total,
				HasMore:    offset+len(items) < total,
			},
			"PrevOffset": prevOffset,
			"NextOffset": offset + limit,
		},
	})
}

// respondItemError maps storage errors on single-item pages.
func (s *Server) respondItemError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, database.ErrItemNotFound) {
		s.renderError(w, r, http.StatusNotFound, "That goal does not exist.")
		return
	}
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong.")
}

// itemRequestFromForm converts form fields into the shared create
// request. The due date arrives as the date input's 2006-01-02 format.
func itemRequestFromForm(r *http.Request) (models.CreateItemRequest, map[string]string) {
	fieldErrors := make(map[string]string)

	req := models.CreateItemRequest{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Category:    r.PostFormValue("category"),
		Priority:    r.PostFormValue("priority"),
		Public:      r.PostFormValue("public") == "true",
	}

	if raw := r.PostFormValue("due_date"); raw != "" {
		due, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fieldErrors["DueDate"] = "Due date must be a valid date"
		} else {
			req.DueDate = &due
		}
	}

	if len(fieldErrors) == 0 {
		fieldErrors = nil
	}
	return req, fieldErrors
}

// mergeFieldErrors combines parse and validation errors, with parse
// errors winning on conflict.
func mergeFieldErrors(parse, validate map[string]string) map[string]string {
	if parse == nil {
		return validate
	}
	for field, msg := range validate {
		if _, exists := parse[field]; !exists {
			parse[field] = msg
		}
	}
	return parse
}
