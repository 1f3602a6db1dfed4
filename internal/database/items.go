// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkaschke/bucketlist/internal/models"
)

const itemColumns = `id, user_id, title, description, category, priority, status,
	due_date, public, created_at, updated_at, completed_at`

// CreateItem inserts a new bucket list item.
func (db *DB) CreateItem(ctx context.Context, item *models.Item) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { observeQuery("insert", "items", start, err) }()

	query := `
		INSERT INTO items (
			id, user_id, title, description, category, priority, status,
			due_date, public, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.conn.ExecContext(ctx, query,
		item.ID, item.UserID, item.Title, nullString(item.Description),
		item.Category, item.Priority, item.Status,
		nullTime(item.DueDate), item.Public,
		item.CreatedAt, item.UpdatedAt, nullTime(item.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

// GetItemForUser retrieves an item scoped to its owner. A foreign item ID
// returns ErrItemNotFound so existence never leaks across accounts.
func (db *DB) GetItemForUser(ctx context.Context, id, userID string) (*models.Item, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ? AND user_id = ?`
	return scanItem(db.conn.QueryRowContext(ctx, query, id, userID))
}

// GetItemByID retrieves an item regardless of owner. Admin-only callers;
// regular reads go through GetItemForUser.
func (db *DB) GetItemByID(ctx context.Context, id string) (*models.Item, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	return scanItem(db.conn.QueryRowContext(ctx, query, id))
}

// ListItems returns a filtered page of a user's items plus the total count
// matching the filter.
func (db *DB) ListItems(ctx context.Context, userID string, filter models.ItemFilter) (_ []models.Item, _ int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { observeQuery("select", "items", start, err) }()

	where, args := buildItemFilter(userID, filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM items ` + where
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	orderBy := "created_at DESC"
	if filter.SortBy == "due_date" {
		// Items without a due date sort last.
		orderBy = "due_date IS NULL, due_date ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM items %s ORDER BY %s LIMIT ? OFFSET ?`,
		itemColumns, where, orderBy)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items, err := collectItems(rows)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// UpdateItem writes all mutable fields of an item.
func (db *DB) UpdateItem(ctx context.Context, item *models.Item) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { observeQuery("update", "items", start, err) }()

	query := `
		UPDATE items SET
			title = ?,
			description = ?,
			category = ?,
			priority = ?,
			status = ?,
			due_date = ?,
			public = ?,
			updated_at = ?,
			completed_at = ?
		WHERE id = ? AND user_id = ?
	`
	result, err := db.conn.ExecContext(ctx, query,
		item.Title, nullString(item.Description), item.Category,
		item.Priority, item.Status, nullTime(item.DueDate), item.Public,
		item.UpdatedAt, nullTime(item.CompletedAt),
		item.ID, item.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	return checkRowsAffected(result, ErrItemNotFound)
}

// DeleteItem removes an item owned by the given user.
func (db *DB) DeleteItem(ctx context.Context, id, userID string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { observeQuery("delete", "items", start, err) }()

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM items WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return checkRowsAffected(result, ErrItemNotFound)
}

// ListPublicItems returns a page of publicly shared items across all users,
// newest first, with the owner's username joined in.
func (db *DB) ListPublicItems(ctx context.Context, category string, limit, offset int) (_ []models.PublicItem, _ int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { observeQuery("select", "public_items", start, err) }()

	where := `WHERE i.public = true`
	args := []interface{}{}
	if category != "" {
		where += ` AND i.category = ?`
		args = append(args, category)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM items i ` + where
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count public items: %w", err)
	}

	query := `
		SELECT i.id, u.username, i.title, i.category, i.status, i.created_at
		FROM items i
		JOIN users u ON u.id = i.user_id
		` + where + `
		ORDER BY i.created_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query public items: %w", err)
	}
	defer rows.Close()

	items := []models.PublicItem{}
	for rows.Next() {
		var p models.PublicItem
		if err := rows.Scan(&p.ID, &p.Username, &p.Title, &p.Category, &p.Status, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan public item: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating public items: %w", err)
	}

	return items, total, nil
}

// buildItemFilter assembles the WHERE clause for a user's item queries.
func buildItemFilter(userID string, filter models.ItemFilter) (string, []interface{}) {
	clauses := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, filter.Priority)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Overdue {
		clauses = append(clauses, "due_date IS NOT NULL AND due_date < CURRENT_TIMESTAMP AND status != ?")
		args = append(args, models.StatusCompleted)
	}
	if filter.Search != "" {
		clauses = append(clauses, "lower(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// itemScanData holds scanned values before conversion to models.Item.
type itemScanData struct {
	id, userID, title          string
	description                sql.NullString
	category, priority, status string
	dueDate                    sql.NullTime
	public                     bool
	createdAt, updatedAt       sql.NullTime
	completedAt                sql.NullTime
}

func (d *itemScanData) toItem() *models.Item {
	item := &models.Item{
		ID:          d.id,
		UserID:      d.userID,
		Title:       d.title,
		Description: d.description.String,
		Category:    d.category,
		Priority:    d.priority,
		Status:      d.status,
		Public:      d.public,
		CreatedAt:   d.createdAt.Time,
		UpdatedAt:   d.updatedAt.Time,
	}
	if d.dueDate.Valid {
		item.DueDate = &d.dueDate.Time
	}
	if d.completedAt.Valid {
		item.CompletedAt = &d.completedAt.Time
	}
	return item
}

// scanItem scans a single item from a row.
func scanItem(row *sql.Row) (*models.Item, error) {
	var d itemScanData
	err := row.Scan(&d.id, &d.userID, &d.title, &d.description,
		&d.category, &d.priority, &d.status,
		&d.dueDate, &d.public, &d.createdAt, &d.updatedAt, &d.completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	return d.toItem(), nil
}

// collectItems scans all items from a row iterator.
func collectItems(rows *sql.Rows) ([]models.Item, error) {
	items := []models.Item{}
	for rows.Next() {
		var d itemScanData
		err := rows.Scan(&d.id, &d.userID, &d.title, &d.description,
			&d.category, &d.priority, &d.status,
			&d.dueDate, &d.public, &d.createdAt, &d.updatedAt, &d.completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *d.toItem())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// nullString converts an optional string for storage.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTime converts an optional time for storage.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
